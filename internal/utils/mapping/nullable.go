package mapping

// NullString maps an empty string to SQL NULL.
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FromNullString maps SQL NULL to an empty string.
func FromNullString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
