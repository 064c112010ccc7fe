package crypto

// Zero overwrites b in place. Used on every intermediate buffer that
// held key material.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
