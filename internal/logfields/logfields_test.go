package logfields

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Task", KeyTask, "styles", Task("styles")},
		{"Composite", KeyComposite, "build", Composite("build")},
		{"RunID", KeyRunID, "abc", RunID("abc")},
		{"Path", KeyPath, "app/css/style.min.css", Path("app/css/style.min.css")},
		{"Binding", KeyBinding, "pages", Binding("pages")},
		{"Branch", KeyBranch, "avif", Branch("avif")},
		{"Addr", KeyAddr, "localhost:3000", Addr("localhost:3000")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.attrKey, c.attr.Key)
			assert.Equal(t, c.attrVal, c.attr.Value.String())
		})
	}
}

func TestNumericHelpers(t *testing.T) {
	assert.Equal(t, int64(3), Count(3).Value.Int64())
	assert.InDelta(t, 12.5, DurationMS(12.5).Value.Float64(), 0.0001)
}

func TestErrorHelper(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
}
