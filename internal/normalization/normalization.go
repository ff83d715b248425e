package normalization

import (
  "strings"
)

// ParseInputString trims surrounding whitespace and collapses inner
// runs of whitespace to a single space.
func ParseInputString(s string) string {
  return strings.Join(strings.Fields(s), " ")
}

func ParseInputStringPtr(s *string) *string {
  if s == nil {
    return nil
  }
  out := ParseInputString(*s)
  return &out
}

// ParseEmail normalizes an email for storage and lookup. Emails are
// unique case-insensitively, so they are always kept lowercase.
func ParseEmail(s string) string {
  return strings.ToLower(ParseInputString(s))
}
