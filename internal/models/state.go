package models

// State maps bookmark keys to values. It is written back at the end of every stream.
type State map[string]any

// StartFor returns the bookmark for key, seeding it with def when absent.
func (s State) StartFor(key string, def string) any {
	if v, ok := s[key]; ok && v != nil {
		return v
	}
	s[key] = def
	return def
}

// Clone returns a shallow copy, enough for the flat bookmark values stored here.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
