package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "lahore", Slugify("  Lahore ", "-"))
	assert.Equal(t, "land-cruiser", Slugify("Land   Cruiser", "-"))
	assert.Equal(t, "", Slugify("   ", "-"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "1300 cc", CleanText("\n  1300\t cc \n"))
}

func TestContainsAnyFold(t *testing.T) {
	tokens := []string{"captcha", "access denied"}
	assert.True(t, ContainsAnyFold("<title>Please solve the CAPTCHA</title>", tokens))
	assert.True(t, ContainsAnyFold("Access Denied", tokens))
	assert.False(t, ContainsAnyFold("<ul></ul>", tokens))
	assert.False(t, ContainsAnyFold("anything", []string{"", "  "}))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, SplitList(" a, ,b c,"))
	assert.Nil(t, SplitList(""))
}
