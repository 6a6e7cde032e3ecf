package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batch writes a config file for a temp input/output tree and copies each
// fixture into the input directory under its new name.
func batch(t *testing.T, extra string, fixtures map[string]string) (cfgPath, outputDir string) {
	t.Helper()
	root := t.TempDir()
	inputDir := filepath.Join(root, "input")
	outputDir = filepath.Join(root, "output")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))

	for name, fixture := range fixtures {
		data, err := os.ReadFile(filepath.Join("..", "internal", "dmarc", "testdata", fixture))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(inputDir, name), data, 0o644))
	}

	cfgPath = filepath.Join(root, "config.yaml")
	yaml := fmt.Sprintf("input_dir: %s\noutput_dir: %s\ninput_archive_dir: %s\nlog_level: error\n%s",
		inputDir, outputDir, filepath.Join(root, "archive"), extra)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	t.Cleanup(func() {
		cfgFile = defaultConfigFile
		rootCmd.PersistentFlags().Lookup("config").Changed = false
	})
	return cfgPath, outputDir
}

func glob(t *testing.T, dir, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	require.NoError(t, err)
	return matches
}

func TestProcessCommand_StopOnError(t *testing.T) {
	cfgPath, outputDir := batch(t, "stop_on_error: true\nmax_concurrency: 1\n", map[string]string{
		"malformed.xml": "malformed.xml",
		"outlook.xml":   "outlook.xml",
	})

	out, err := execute(t, "process", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 failed report")

	assert.Contains(t, out, "✗ malformed.xml")
	assert.Contains(t, out, "Skipped:         1")
	assert.NotContains(t, out, "✓ outlook.xml")

	logs := glob(t, outputDir, "error_log_*.txt")
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "malformed.xml")

	summaries := glob(t, outputDir, "processing_summary_*.txt")
	require.Len(t, summaries, 1)
	data, err = os.ReadFile(summaries[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "malformed.xml")

	assert.Empty(t, glob(t, outputDir, "*.csv"))
}

func TestProcessCommand_ContinuesPastFailures(t *testing.T) {
	cfgPath, outputDir := batch(t, "max_concurrency: 3\n", map[string]string{
		"c.xml":         "outlook.xml",
		"a.xml":         "outlook.xml",
		"malformed.xml": "malformed.xml",
		"b.xml":         "outlook.xml",
	})

	out, err := execute(t, "process", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Successful:      3")
	assert.Contains(t, out, "Errors:          1")
	assert.NotContains(t, out, "Skipped:")
	assert.Len(t, glob(t, outputDir, "*.csv"), 3)
	assert.Len(t, glob(t, outputDir, "error_log_*.txt"), 1)

	var order []int
	for _, line := range []string{"✓ a.xml", "✓ b.xml", "✓ c.xml", "✗ malformed.xml"} {
		i := strings.Index(out, line)
		require.GreaterOrEqual(t, i, 0, line)
		order = append(order, i)
	}
	assert.IsIncreasing(t, order, "results are listed by file name")
}

func TestProcessCommand_EmptyInput(t *testing.T) {
	cfgPath, outputDir := batch(t, "", nil)

	out, err := execute(t, "process", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No reports found")
	assert.Empty(t, glob(t, outputDir, "processing_summary_*.txt"))
}
