package field

import "strconv"

// Activity feeds commonly ship counter mutations as signed strings:
// "+1" bumps the current value, "-2" decrements it, while a bare
// number replaces it. parseDelta reports the parsed number and whether
// it is a relative change.
func parseDelta(s string) (int64, bool, error) {
	if s == "" {
		return 0, false, strconv.ErrSyntax
	}
	delta := s[0] == '+' || s[0] == '-'
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, delta, nil
}

func parseDeltaFloat(s string) (float64, bool, error) {
	if s == "" {
		return 0, false, strconv.ErrSyntax
	}
	delta := s[0] == '+' || s[0] == '-'
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return n, delta, nil
}
