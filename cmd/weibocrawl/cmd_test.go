package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weibocrawl/pkg/models"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		arg  string
		key  string
		want string
	}{
		{"1669879400", "uid", "1669879400"},
		{"@某某", "screen-name", "某某"},
		{" someone ", "screen-name", "someone"},
		{"77abc", "screen-name", "77abc"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			flags := map[string]interface{}{}
			parseTarget(tt.arg, flags)
			assert.Equal(t, tt.want, flags[tt.key])
			assert.Len(t, flags, 1)
		})
	}

	flags := map[string]interface{}{}
	parseTarget("  ", flags)
	assert.Empty(t, flags)
}

func TestChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "crawl"}
	cmd.Flags().String("since", "", "")
	cmd.Flags().String("until", "", "")
	cmd.Flags().Int("pages", 50, "")
	cmd.Flags().Int("max", 0, "")
	cmd.Flags().Bool("browser", false, "")

	require.NoError(t, cmd.ParseFlags([]string{"--since", "2020-01-01", "--pages", "7", "--browser"}))

	flags := changedFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"since":   "2020-01-01",
		"pages":   7,
		"browser": true,
	}, flags)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "someone (77)", describe(models.Author{UID: "77", ScreenName: "someone"}))
	assert.Equal(t, "77", describe(models.Author{UID: "77"}))
	assert.Equal(t, "someone", describe(models.Author{ScreenName: "someone"}))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "********", maskSecret("SUB=abc"))
	assert.Equal(t, "SUB=...wxyz", maskSecret("SUB=0123456789wxyz"))
}
