package console

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayOptions_Defaults(t *testing.T) {
	d := NewDisplayOptions()
	assert.False(t, d.Verbose())
	assert.Equal(t, DefaultShortFormat, d.Template())

	d.SetVerbose(true)
	assert.Equal(t, DefaultLongFormat, d.Template())
}

func TestDisplayOptions_ToggleKeepsCustomTemplates(t *testing.T) {
	d := NewDisplayOptions()
	d.SetLongFormat("LONG %{body}")
	d.SetShortFormat("SHORT %{body}")

	assert.Equal(t, "SHORT %{body}", d.Template())
	assert.True(t, d.ToggleVerbose())
	assert.Equal(t, "LONG %{body}", d.Template())
	assert.False(t, d.ToggleVerbose())
	assert.Equal(t, "SHORT %{body}", d.Template())
}

func TestDisplayOptions_CallbackSwap(t *testing.T) {
	d := NewDisplayOptions()
	assert.Nil(t, d.Snapshot().Callback)

	var got *Message
	d.SetCallback(func(m *Message) { got = m })
	snap := d.Snapshot()
	snap.Callback(&Message{Body: "x"})
	assert.Equal(t, "x", got.Body)

	d.SetCallback(nil)
	assert.Nil(t, d.Snapshot().Callback)
}

func TestDisplayOptions_SnapshotConsistency(t *testing.T) {
	d := NewDisplayOptions()
	d.SetVerbose(true)
	d.SetLongFormat("L")
	snap := d.Snapshot()
	assert.True(t, snap.Verbose)
	assert.Equal(t, "L", snap.Template)
}

func TestDisplayOptions_NoTornReadsUnderContention(t *testing.T) {
	const (
		alpha = "AAAA %{time} %{source} %{body}"
		beta  = "BBBB %{body}"
		short = "SSSS %{body}"
	)

	d := NewDisplayOptions()
	d.SetShortFormat(short)
	d.SetLongFormat(alpha)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				d.SetLongFormat(alpha)
			} else {
				d.SetLongFormat(beta)
			}
			d.ToggleVerbose()
		}
	}()

	for i := 0; i < 20000; i++ {
		tmpl := d.Snapshot().Template
		if tmpl != alpha && tmpl != beta && tmpl != short {
			close(stop)
			wg.Wait()
			t.Fatalf("torn template read: %q", tmpl)
		}
	}
	close(stop)
	wg.Wait()
}
