package validate

// brackets.go - Generic start/stop pairing state. Brackets are keyed by
// (number, voice, staff); kinds without numbers (ties) use number 0.

// bracketKey identifies one bracket line.
type bracketKey struct {
	number int
	voice  int
	staff  int
}

// openBrackets maps open brackets to the location that opened them.
type openBrackets map[bracketKey]Location

// open records a start. It returns false if the key was already open (the
// previous opening stays recorded so a later stop still pairs).
func (o openBrackets) open(key bracketKey, loc Location) bool {
	if _, exists := o[key]; exists {
		return false
	}
	o[key] = loc
	return true
}

// has reports whether the key is currently open.
func (o openBrackets) has(key bracketKey) bool {
	_, exists := o[key]
	return exists
}

// close removes an open bracket. It returns false if none was open.
func (o openBrackets) close(key bracketKey) bool {
	if _, exists := o[key]; !exists {
		return false
	}
	delete(o, key)
	return true
}
