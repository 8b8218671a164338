package dsl

// leaderDefaults are the per-position defaults of §3: status, type, and
// bibliographic-level codes that a MARCout definition may still override.
var leaderDefaults = map[int]byte{
	5:  'n',
	6:  'j',
	7:  'm',
	17: '1',
}

// leaderFixed are structural characters the format itself fixes —
// indicator/subfield-code counts and the entry-map character set — never
// overridable by LDR POS.
var leaderFixed = map[int]byte{
	10: '2',
	11: '2',
	20: '4',
	21: '5',
	22: '0',
	23: '0',
}

// placeholderPositions (record length, base address) are computed at ISO
// 2709 emission time; the parser always renders them as zeros.
func isPlaceholderPosition(pos int) bool {
	return (pos >= 0 && pos <= 4) || (pos >= 12 && pos <= 16)
}

// renderLeader builds the 24-character leader literal from user
// overrides layered on top of the defaults, with fixed and placeholder
// positions always winning.
func renderLeader(overrides map[int]byte) string {
	buf := make([]byte, 24)
	for i := range buf {
		buf[i] = ' '
	}
	for pos, c := range leaderDefaults {
		buf[pos] = c
	}
	for pos, c := range overrides {
		if isPlaceholderPosition(pos) {
			continue
		}
		buf[pos] = c
	}
	for pos, c := range leaderFixed {
		buf[pos] = c
	}
	for pos := range buf {
		if isPlaceholderPosition(pos) {
			buf[pos] = '0'
		}
	}
	return string(buf)
}
