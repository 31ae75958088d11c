package executor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestMergeEnv_OverlayWins(t *testing.T) {
	base := map[string]string{"A": "1", "B": "2"}
	overlay := map[string]string{"B": "overridden", "C": "3"}

	merged := mergeEnv(base, overlay)
	assert.Equal(t, map[string]string{"A": "1", "B": "overridden", "C": "3"}, merged)
	assert.Equal(t, "2", base["B"], "inputs must not be mutated")
}

func TestFlattenEnv_Sorted(t *testing.T) {
	out := flattenEnv(map[string]string{"ZED": "z", "ALPHA": "a"})
	assert.Equal(t, []string{"ALPHA=a", "ZED=z"}, out)
}

func TestToCtyValue(t *testing.T) {
	t.Run("nil becomes null", func(t *testing.T) {
		v, err := toCtyValue(nil)
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	})

	t.Run("cty values pass through", func(t *testing.T) {
		in := cty.StringVal("x")
		v, err := toCtyValue(in)
		require.NoError(t, err)
		assert.Equal(t, in, v)
	})

	t.Run("structs round-trip through json", func(t *testing.T) {
		type out struct {
			Rewritten int    `json:"rewritten"`
			Report    string `json:"report"`
		}
		v, err := toCtyValue(&out{Rewritten: 3, Report: "coverage.xml"})
		require.NoError(t, err)

		n, _ := v.GetAttr("rewritten").AsBigFloat().Int64()
		assert.Equal(t, int64(3), n)
		assert.Equal(t, "coverage.xml", v.GetAttr("report").AsString())
	})

	t.Run("unrepresentable values fail", func(t *testing.T) {
		_, err := toCtyValue(func() {})
		require.Error(t, err)
	})
}

func TestPrefixWriter_PrefixesEveryLine(t *testing.T) {
	var dst bytes.Buffer
	w := newPrefixWriter(&dst, "job.tests[python=3.11]")

	_, err := w.Write([]byte("first\nsec"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ond\n"))
	require.NoError(t, err)

	assert.Equal(t,
		"job.tests[python=3.11] | first\njob.tests[python=3.11] | second\n",
		dst.String())
}

func TestPrefixWriter_FlushEmitsPartialLine(t *testing.T) {
	var dst bytes.Buffer
	w := newPrefixWriter(&dst, "job.x")

	_, err := w.Write([]byte("no newline"))
	require.NoError(t, err)
	assert.Empty(t, dst.String())

	require.NoError(t, w.Flush())
	assert.Equal(t, "job.x | no newline\n", dst.String())
	require.NoError(t, w.Flush(), "flushing an empty buffer is a no-op")
}

type closedSink struct{}

func (closedSink) Write(p []byte) (int, error) { return 0, errors.New("sink closed") }

func TestPrefixWriter_FailedSinkReportsNothingWritten(t *testing.T) {
	w := newPrefixWriter(closedSink{}, "job.x")

	n, err := w.Write([]byte("lost line\n"))
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "job.tests_python-3.11_shots-100",
		sanitizeID("job.tests[python=3.11,shots=100]"))
}
