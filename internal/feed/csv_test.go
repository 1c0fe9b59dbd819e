package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "klines.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, `open_time,open,high,low,close,volume,close_time,quote_asset_volume,number_of_trades,taker_buy_base_asset_volume,taker_buy_quote_asset_volume
1755000000000,100.1,101.2,99.3,100.9,523.4,1755000059999,52712.1,321,250.0,25210.5
1755000060000,100.9,102.0,100.5,101.7,431.0,1755000119999,43790.2,280,200.0,20320.1
`)

	bars, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.UnixMilli(1755000000000), bars[0].OpenTime)
	assert.Equal(t, 100.1, bars[0].Open)
	assert.Equal(t, 101.2, bars[0].High)
	assert.Equal(t, 99.3, bars[0].Low)
	assert.Equal(t, 100.9, bars[0].Close)
	assert.Equal(t, 523.4, bars[0].Volume)
	assert.Equal(t, 101.7, bars[1].Close)
	assert.True(t, bars[1].OpenTime.After(bars[0].OpenTime))
}

func TestLoadCSVHeaderOnly(t *testing.T) {
	path := writeCSV(t, "open_time,open,high,low,close,volume,close_time\n")
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadCSVBadNumbers(t *testing.T) {
	path := writeCSV(t, `open_time,open,high,low,close,volume,close_time
1755000000000,abc,101.2,99.3,100.9,523.4,1755000059999
`)
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWSKlineToBar(t *testing.T) {
	k := wsKline{
		OpenTime: 1755000000000,
		Open:     "100.1",
		High:     "101.2",
		Low:      "99.3",
		Close:    "100.9",
		Volume:   "523.4",
		Closed:   true,
	}
	bar, err := k.toBar()
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1755000000000), bar.OpenTime)
	assert.Equal(t, 100.9, bar.Close)

	k.Close = "not-a-number"
	_, err = k.toBar()
	assert.Error(t, err)
}
