package normalization

import (
  "testing"

  "github.com/stretchr/testify/assert"
)

func TestParseInputString(t *testing.T) {
  assert.Equal(t, "Budi Santoso", ParseInputString("  Budi   Santoso  "))
  assert.Equal(t, "", ParseInputString("   \t\n  "))
  assert.Equal(t, "already clean", ParseInputString("already clean"))
}

func TestParseInputStringPtr(t *testing.T) {
  assert.Nil(t, ParseInputStringPtr(nil))
  in := "  spaced  out  "
  out := ParseInputStringPtr(&in)
  assert.Equal(t, "spaced out", *out)
}

func TestParseEmail(t *testing.T) {
  assert.Equal(t, "budi@example.com", ParseEmail("  Budi@Example.COM "))
}
