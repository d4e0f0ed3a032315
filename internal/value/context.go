package value

// IsOverridingContext walks candidate's keylist-ancestor chain looking for
// stored's keylist (spec §4.2): "Is_Overriding_Context(stored, candidate)
// walks candidate's keylist-ancestor chain until it hits stored's keylist
// (override) or a self-loop terminator (no override). Frame keylists do
// not participate in derivation." candidate deriving from stored means a
// word bound specifically to the base object (stored) should, when the
// ambient frame is actually a more-derived instance (candidate), resolve
// against candidate instead — the method-body-sees-the-derived-instance
// rule.
func IsOverridingContext(stored, candidate *Keylist) bool {
	if stored == nil || candidate == nil {
		return false
	}
	for cur := candidate; cur != nil; cur = cur.Ancestor {
		if cur == stored {
			return cur != candidate // the identity case is "no override"
		}
	}
	return false
}
