package results

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

var (
	keyA = core.DatasetKey{Collection: "c", Name: "A"}
	keyB = core.DatasetKey{Collection: "c", Name: "B"}
	keyC = core.DatasetKey{Collection: "c", Name: "C"}
)

func seed(v int64) *int64 { return &v }

func outcome(key core.DatasetKey, auc float64) core.Outcome {
	return core.Outcome{
		Dataset:     key,
		Status:      core.StatusSuccess,
		Seed:        seed(0),
		Scores:      map[string]float64{"auc_roc": auc},
		Timed:       true,
		FitTime:     1234567 * time.Microsecond,
		PredictTime: 20 * time.Millisecond,
	}
}

func TestValues(t *testing.T) {
	cols := core.Columns([]string{"auc_roc", "f1@fixed_cutoff"}, true, true)
	o := outcome(keyA, 0.75)
	o.MemoryTraced = true
	o.FitPeakMemory = 2048
	o.PredictPeakMemory = 1000

	got := Values(cols, o)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.75, got[1])
	assert.True(t, math.IsNaN(got[2]), "missing score")
	assert.Equal(t, 1.23457, got[3])
	assert.Equal(t, 0.02, got[4])
	assert.Equal(t, 2.0, got[5])
	assert.Equal(t, 0.97656, got[6])
}

func TestTable_ApplyIsOrderIndependent(t *testing.T) {
	cols := core.Columns([]string{"auc_roc"}, false, false)

	forward := New(cols, []core.DatasetKey{keyA, keyB})
	forward.Apply(outcome(keyA, 0.1))
	forward.Apply(outcome(keyB, 0.2))

	backward := New(cols, []core.DatasetKey{keyA, keyB})
	backward.Apply(outcome(keyB, 0.2))
	backward.Apply(outcome(keyA, 0.1))

	assert.True(t, Equal(forward, backward))
	assert.Equal(t, []core.DatasetKey{keyA, keyB}, forward.Keys())
}

func TestTable_Open(t *testing.T) {
	cols := core.Columns([]string{"auc_roc"}, false, false)
	table := New(cols, []core.DatasetKey{keyA})
	assert.True(t, table.Open(keyA))
	assert.True(t, table.Open(keyB), "unknown keys are open")

	o := outcome(keyA, 0.5)
	o.Seed = nil
	table.Apply(o)
	assert.False(t, table.Open(keyA), "seed column does not keep a row open")

	// Apply never overwrites a computed cell.
	table.Apply(outcome(keyA, 0.9))
	assert.Equal(t, 0.5, table.Value(keyA, "auc_roc"))
}

func TestTable_Merge(t *testing.T) {
	cols := core.Columns([]string{"auc_roc", "auc_pr"}, false, false)

	persisted := New(cols, []core.DatasetKey{keyA, keyC})
	persisted.Set(keyA, []float64{1, 0.9, math.NaN()})
	persisted.Set(keyC, []float64{1, 0.3, 0.4})

	current := New(cols, []core.DatasetKey{keyA, keyB})
	current.Set(keyA, []float64{math.NaN(), 0.1, 0.2})
	require.NoError(t, current.Merge(persisted))

	assert.Equal(t, []core.DatasetKey{keyA, keyB, keyC}, current.Keys(), "undeclared keys follow declared ones")
	row, _ := current.Row(keyA)
	assert.Equal(t, []float64{1, 0.9, 0.2}, row, "persisted cells win, open cells are kept")
	assert.True(t, current.Open(keyB))
	assert.False(t, current.Open(keyC))

	other := New(core.Columns([]string{"auc_roc"}, true, false), nil)
	err := current.Merge(other)
	require.Error(t, err)
	assert.True(t, core.IsConfiguration(err))
}

func TestCSVRoundTrip(t *testing.T) {
	cols := core.Columns([]string{"auc_roc"}, true, false)
	table := New(cols, []core.DatasetKey{keyA, keyB})
	table.Apply(outcome(keyA, 0.1+0.2))

	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))
	assert.Equal(t,
		"Collection,Dataset,Seed,auc_roc,Time fit (s),Time predict (s)\n"+
			"c,A,0,0.30000000000000004,1.23457,0.02\n"+
			"c,B,,,,\n",
		buf.String())

	read, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, Equal(table, read))

	var again bytes.Buffer
	require.NoError(t, read.Write(&again))
	assert.Equal(t, buf.String(), again.String())
}

func TestRead_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":     "",
		"no keys":   "Seed,auc\n1,2\n",
		"bad float": "Collection,Dataset,auc\nc,A,high\n",
		"duplicate": "Collection,Dataset,auc\nc,A,1\nc,A,2\n",
		"ragged":    "Collection,Dataset,auc\nc,A\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(bytes.NewBufferString(body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "results.csv"))
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestStore_Resume(t *testing.T) {
	layout := NewLayout(t.TempDir(), "zscore")
	cols := core.Columns([]string{"auc_roc"}, true, false)
	opts := StoreOptions{SaveResults: true}

	first, err := OpenStore(layout, cols, []core.DatasetKey{keyA, keyB}, opts)
	require.NoError(t, err)
	first.Apply(outcome(keyA, 0.1))
	first.Apply(outcome(keyB, 0.2))
	require.NoError(t, first.Finish())

	before, err := os.ReadFile(layout.Results())
	require.NoError(t, err)

	second, err := OpenStore(layout, cols, []core.DatasetKey{keyA, keyB, keyC}, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Resumed())
	assert.False(t, second.Pending(keyA))
	assert.False(t, second.Pending(keyB))
	assert.True(t, second.Pending(keyC))

	second.Apply(outcome(keyC, 0.3))
	require.NoError(t, second.Finish())

	after, err := os.ReadFile(layout.Results())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(after, before), "rows of A and B are byte-identical")
	assert.Contains(t, string(after), "c,C,0,0.3,")
}

func TestStore_SchemaChange(t *testing.T) {
	layout := NewLayout(t.TempDir(), "zscore")
	store, err := OpenStore(layout, core.Columns([]string{"auc_roc"}, false, false), []core.DatasetKey{keyA}, StoreOptions{SaveResults: true})
	require.NoError(t, err)
	require.NoError(t, store.Finish())

	_, err = OpenStore(layout, core.Columns([]string{"auc_pr"}, false, false), []core.DatasetKey{keyA}, StoreOptions{})
	require.Error(t, err)
	assert.True(t, core.IsConfiguration(err))
}

func TestStore_IntermediateRows(t *testing.T) {
	layout := NewLayout(t.TempDir(), "zscore")
	cols := core.Columns([]string{"auc_roc"}, false, false)

	// A crashed run leaves only intermediate rows behind.
	require.NoError(t, WriteIntermediate(layout, cols, outcome(keyB, 0.2)))
	_, err := os.Stat(layout.Intermediate(keyB))
	require.NoError(t, err)

	store, err := OpenStore(layout, cols, []core.DatasetKey{keyA, keyB}, StoreOptions{SaveResults: true, ConstantlySaveResults: true})
	require.NoError(t, err)
	assert.True(t, store.Pending(keyA))
	assert.False(t, store.Pending(keyB))

	store.Apply(outcome(keyA, 0.1))
	require.NoError(t, store.Finish())

	_, err = os.Stat(filepath.Join(layout.Dir, IntermediateDir))
	assert.True(t, os.IsNotExist(err), "intermediate rows are removed after the final save")

	final, err := Load(layout.Results())
	require.NoError(t, err)
	assert.Equal(t, 0.2, final.Value(keyB, "auc_roc"))
}

func TestStore_NoSave(t *testing.T) {
	layout := NewLayout(t.TempDir(), "zscore")
	store, err := OpenStore(layout, core.Columns([]string{"auc_roc"}, false, false), []core.DatasetKey{keyA}, StoreOptions{})
	require.NoError(t, err)
	store.Apply(outcome(keyA, 0.1))
	require.NoError(t, store.Finish())

	_, err = os.Stat(layout.Results())
	assert.True(t, os.IsNotExist(err))
}
