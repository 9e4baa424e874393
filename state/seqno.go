package state

// Sequence numbers are compared with 16-bit serial arithmetic so that wrap-around after 65535 keeps ordering.

func SeqnoLt(a, b uint16) bool {
	x := b - a
	return 0 < x && x < 32768
}

func SeqnoLe(a, b uint16) bool {
	return a == b || SeqnoLt(a, b)
}
func SeqnoGt(a, b uint16) bool {
	return !SeqnoLe(a, b)
}
func SeqnoGe(a, b uint16) bool {
	return !SeqnoLt(a, b)
}
