package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `<?xml version="1.0" ?>
<coverage line-rate="0.91" branch-rate="0.84" version="7.4" timestamp="1756600000">
	<sources>
		<source>/opt/hostedtoolcache/Python/3.11.9/x64/lib/python3.11/site-packages/pennylane</source>
	</sources>
	<packages>
		<package name="pennylane" line-rate="0.91">
			<classes>
				<class name="qnode" filename="/opt/hostedtoolcache/Python/3.11.9/x64/lib/python3.11/site-packages/pennylane/workflow/qnode.py" line-rate="0.93">
					<lines>
						<line number="1" hits="1"/>
						<line number="2" hits="0"/>
					</lines>
				</class>
				<class name="device" filename="pennylane/devices/device.py" line-rate="0.88">
					<lines>
						<line number="10" hits="3"/>
					</lines>
				</class>
			</classes>
		</package>
	</packages>
</coverage>
`

func TestParse_ReadsSourcesAndClasses(t *testing.T) {
	r, err := Parse([]byte(sampleReport))
	require.NoError(t, err)

	require.Len(t, r.Sources, 1)
	require.Len(t, r.Packages, 1)
	require.Len(t, r.Packages[0].Classes, 2)
	assert.Equal(t, "0.91", r.LineRate)
	assert.Equal(t, "qnode", r.Packages[0].Classes[0].Name)
	assert.Len(t, r.Packages[0].Classes[0].Lines, 2)
}

func TestRewrite_SwapsPrefixOnSourcesAndFilenames(t *testing.T) {
	r, err := Parse([]byte(sampleReport))
	require.NoError(t, err)

	const from = "/opt/hostedtoolcache/Python/3.11.9/x64/lib/python3.11/site-packages/pennylane"
	n := r.Rewrite(from, "pennylane")

	// One source root and one absolute filename match; the second class is
	// already repository-relative.
	assert.Equal(t, 2, n)
	assert.Equal(t, "pennylane", r.Sources[0].Path)
	assert.Equal(t, "pennylane/workflow/qnode.py", r.Packages[0].Classes[0].Filename)
	assert.Equal(t, "pennylane/devices/device.py", r.Packages[0].Classes[1].Filename)
}

func TestRewrite_EmptyPrefixIsANoop(t *testing.T) {
	r, err := Parse([]byte(sampleReport))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Rewrite("", "x"))
}

func TestRewrite_PreservesRatesThroughRoundTrip(t *testing.T) {
	r, err := Parse([]byte(sampleReport))
	require.NoError(t, err)
	r.Rewrite("/opt", "")

	raw, err := r.Encode()
	require.NoError(t, err)

	again, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "0.91", again.LineRate)
	assert.Equal(t, "0.84", again.Branch)
	assert.Equal(t, "0.93", again.Packages[0].Classes[0].LineRate)
}

func TestWriteFile_RoundTripsThroughDisk(t *testing.T) {
	r, err := Parse([]byte(sampleReport))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "coverage.xml")
	require.NoError(t, r.WriteFile(path))

	again, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.Sources, again.Sources)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<?xml")
}

func TestParseFile_MissingFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.xml"))
	require.Error(t, err)
}
