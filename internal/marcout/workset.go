package marcout

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"marcout/internal/dsl"
	"marcout/internal/enginecache"
	"marcout/internal/marcerr"
	"marcout/internal/marcutil"
	"marcout/internal/metrics"
)

// engineCache memoizes compiled engines across requests when set by
// the hosting service (cmd/marcoutd); nil in tests and callers that
// never call SetEngineCache, in which case every request parses its
// own source, exactly as before the cache existed.
var engineCache *enginecache.Cache

// SetEngineCache installs the process-wide compiled-Engine cache that
// ResolveWorkset consults before parsing.
func SetEngineCache(c *enginecache.Cache) {
	engineCache = c
}

// SerializationName identifies one of the §6 requested-serialization
// values.
type SerializationName string

const (
	SerializationMarcText         SerializationName = "marc-text"
	SerializationISO2709          SerializationName = "iso2709"
	SerializationRawDatastructure SerializationName = "raw-datastructure"
	SerializationMarcXML          SerializationName = "marc-xml"
)

// ExportWorkset is the per-request bundle (§3): a compiled Engine, the
// requested serialization, collection parameters, and the records to
// evaluate. Constructed once by request resolution, consumed once.
type ExportWorkset struct {
	Engine        *dsl.Engine
	Serialization SerializationName
	Params        map[string]any
	Records       []map[string]any
}

// UnifiedRequest mirrors the §6 unified JSON request shape.
type UnifiedRequest struct {
	MarcoutSourcecode       string         `json:"marcout_sourcecode"`
	RequestedSerialization  reqSerial      `json:"requested_serialization"`
	CollectionInfo          map[string]any `json:"collection_info"`
	Records                 []map[string]any `json:"records"`
}

type reqSerial struct {
	Name string `json:"serialization-name"`
}

var knownSerializations = map[SerializationName]bool{
	SerializationMarcText:         true,
	SerializationISO2709:          true,
	SerializationRawDatastructure: true,
	SerializationMarcXML:          true,
}

// ResolveWorkset validates and compiles a unified request into an
// ExportWorkset (§6, §7 category 2: workset-consistency errors are
// fatal).
func ResolveWorkset(req *UnifiedRequest) (*ExportWorkset, error) {
	if req == nil {
		return nil, marcerr.Workset("request body is empty")
	}
	if strings.TrimSpace(req.MarcoutSourcecode) == "" {
		return nil, marcerr.Workset("missing required key %q", "marcout_sourcecode")
	}
	name := SerializationName(req.RequestedSerialization.Name)
	if name == "" {
		return nil, marcerr.Workset("missing required key %q", "requested_serialization.serialization-name")
	}
	if !knownSerializations[name] {
		return nil, marcerr.Workset("unknown serialization-name %q", name)
	}
	if req.CollectionInfo == nil {
		return nil, marcerr.Workset("missing required key %q", "collection_info")
	}
	if req.Records == nil {
		return nil, marcerr.Workset("missing required key %q", "records")
	}

	source := marcutil.UnescapeMarcout(req.MarcoutSourcecode)

	var engine *dsl.Engine
	if engineCache != nil {
		if cached, ok := engineCache.Get(source); ok {
			engine = cached
		}
	}
	if engine == nil {
		start := time.Now()
		parsed, err := dsl.Parse(source)
		if m := metrics.Get(); m != nil {
			m.ParseDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			return nil, err
		}
		engine = parsed
		if engineCache != nil {
			// No collection code travels with a unified request, so
			// this miss is cached locally only; Redis staleness
			// tracking is for the DSL watcher's named definitions.
			engineCache.Put(context.Background(), "", source, engine)
		}
	}

	if err := checkParameterSymmetricDifference(engine.KnownParameters, req.CollectionInfo); err != nil {
		return nil, err
	}

	return &ExportWorkset{
		Engine:        engine,
		Serialization: name,
		Params:        req.CollectionInfo,
		Records:       req.Records,
	}, nil
}

// checkParameterSymmetricDifference implements P8: evaluation proceeds
// only when the DSL's KNOWN PARAMETERS set equals collection_info's key
// set, reporting the mismatch in both directions.
func checkParameterSymmetricDifference(known map[string]bool, collectionInfo map[string]any) error {
	var missing, unexpected []string

	for name := range known {
		if _, ok := collectionInfo[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range collectionInfo {
		if !known[name] {
			unexpected = append(unexpected, name)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return marcerr.Workset(
		"collection_info does not match KNOWN PARAMETERS: missing %s, unexpected %s",
		formatNameList(missing), formatNameList(unexpected),
	)
}

func formatNameList(names []string) string {
	if len(names) == 0 {
		return "[]"
	}
	return fmt.Sprintf("%v", names)
}
