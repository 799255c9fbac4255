package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmoji(t *testing.T) {
	tests := []struct {
		polarity float64
		want     string
	}{
		{1, "😊"},
		{0.5, "😊"},
		{1e-9, "😊"},
		{0, ""},
		{-1e-9, "😠"},
		{-0.5, "😠"},
		{-1, "😠"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Emoji(tt.polarity), "polarity %v", tt.polarity)
	}
}

func TestAnalyzer_Polarity(t *testing.T) {
	a := New()

	assert.Greater(t, a.Polarity("I love this, it is wonderful!"), 0.0)
	assert.Less(t, a.Polarity("This is terrible and I hate it."), 0.0)
	assert.Equal(t, 0.0, a.Polarity("The file is on the table."))

	for _, text := range []string{"", "great great great great!!!", "awful awful awful"} {
		p := a.Polarity(text)
		assert.GreaterOrEqual(t, p, -1.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}
