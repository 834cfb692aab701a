package docfile

import (
	"bytes"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	. "github.com/fulldump/biff"
	"github.com/rs/zerolog"

	"github.com/fulldump/docfile/codec"
	"github.com/fulldump/docfile/persistence"
	"github.com/fulldump/docfile/value"
)

func q(s string) *value.Map {
	return value.MustParseJSONMap(s)
}

func readFile(filename string) string {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

func field(m *value.Map, key string) string {
	v, _ := m.Get(key)
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}

func TestDriver_NotConnected(t *testing.T) {

	d := NewJSON(filepath.Join(t.TempDir(), "db.json"))

	_, err := d.Set(q(`{"a":1}`))
	AssertEqual(err, ErrNotConnected)

	_, err = d.Get(q(`{}`))
	AssertEqual(err, ErrNotConnected)

	_, err = d.GetOne(q(`{}`))
	AssertEqual(err, ErrNotConnected)

	_, err = d.Update(q(`{}`), q(`{"a":2}`))
	AssertEqual(err, ErrNotConnected)

	_, err = d.Delete(q(`{}`))
	AssertEqual(err, ErrNotConnected)

	_, err = d.Exists(q(`{}`))
	AssertEqual(err, ErrNotConnected)

	_, err = d.Count(q(`{}`))
	AssertEqual(err, ErrNotConnected)

	AssertEqual(d.Clear(), ErrNotConnected)
	AssertEqual(d.Flush(), ErrNotConnected)
	AssertEqual(d.Reload(), ErrNotConnected)
	AssertEqual(d.Drop(), ErrNotConnected)

	AssertNil(d.Disconnect())
	AssertFalse(d.Connected())
}

func TestDriver_ConnectMissingFile(t *testing.T) {

	Alternative("autosave writes an empty snapshot", func(a *A) {
		filename := filepath.Join(t.TempDir(), "a", "b", "db.json")
		d := NewJSON(filename)

		AssertNil(d.Connect())
		AssertTrue(d.Connected())
		AssertEqual(readFile(filename), "[]\n")

		records, err := d.Get(q(`{}`))
		AssertNil(err)
		AssertEqual(len(records), 0)
	})

	Alternative("manual writes nothing", func(a *A) {
		filename := filepath.Join(t.TempDir(), "db.json")
		d := NewJSON(filename, WithPolicy(Manual))

		AssertNil(d.Connect())
		AssertFalse(fileExists(filename))

		d.Set(q(`{"a":1}`))
		AssertFalse(fileExists(filename))

		AssertNil(d.Flush())
		AssertTrue(fileExists(filename))
	})
}

func TestDriver_Set(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	d := NewJSON(filename)
	AssertNil(d.Connect())

	record, err := d.Set(q(`{"name":"Fulanez","tags":["a"]}`))
	AssertNil(err)

	AssertEqual(record.Keys(), []string{"_id", "name", "tags", "_createdAt", "_updatedAt"})
	AssertNotEqual(field(record, "_id"), "")
	AssertEqual(field(record, "_createdAt"), field(record, "_updatedAt"))

	second, _ := d.Set(q(`{"name":"Menganez"}`))
	AssertNotEqual(field(second, "_id"), field(record, "_id"))

	// autosave
	stored, err := codec.NewJSON().Decode([]byte(readFile(filename)))
	AssertNil(err)
	AssertEqual(len(stored), 2)
	AssertTrue(stored[0].Equal(record))
}

func TestDriver_Get(t *testing.T) {

	d := NewJSON(filepath.Join(t.TempDir(), "db.json"))
	AssertNil(d.Connect())

	d.Set(q(`{"a":1}`))
	d.Set(q(`{"a":2}`))
	d.Set(q(`{"b":1}`))
	d.Set(q(`{"a":{"b":2,"c":99},"tags":[1,2,3]}`))
	d.Set(q(`{"tags":[2,1]}`))
	d.Set(q(`{"tags":[1,2]}`))

	Alternative("scalar", func(a *A) {
		records, _ := d.Get(q(`{"a":1}`))
		AssertEqual(len(records), 1)
		AssertEqual(field(records[0], "a"), "1")
	})

	Alternative("nested subset", func(a *A) {
		records, _ := d.Get(q(`{"a":{"b":2}}`))
		AssertEqual(len(records), 1)
	})

	Alternative("exact array", func(a *A) {
		records, _ := d.Get(q(`{"tags":[1,2]}`))
		AssertEqual(len(records), 1)
		AssertEqual(field(records[0], "tags"), "[1,2]")
	})

	Alternative("all", func(a *A) {
		n, _ := d.Count(q(`{}`))
		AssertEqual(n, 6)
	})

	Alternative("get one", func(a *A) {
		record, err := d.GetOne(q(`{"b":1}`))
		AssertNil(err)
		AssertEqual(field(record, "b"), "1")

		_, err = d.GetOne(q(`{"b":2}`))
		AssertEqual(err, ErrNotFound)
	})

	Alternative("exists", func(a *A) {
		exists, _ := d.Exists(q(`{"a":2}`))
		AssertTrue(exists)
		exists, _ = d.Exists(q(`{"a":3}`))
		AssertFalse(exists)
	})
}

func TestDriver_UpdateDelete(t *testing.T) {

	Alternative("5 records, 2 matching", func(a *A) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		d := NewJSON(filepath.Join(t.TempDir(), "db.json"), WithClock(func() time.Time { return now }))
		AssertNil(d.Connect())

		for i := 0; i < 5; i++ {
			d.Set(value.NewMap().Set("i", value.Number(float64(i))).Set("hit", value.Bool(i == 0 || i == 3)))
		}
		before, _ := d.Get(nil)

		a.Alternative("update", func(a *A) {
			now = now.Add(time.Minute)
			n, err := d.Update(q(`{"hit":true}`), q(`{"x":true}`))
			AssertNil(err)
			AssertEqual(n, 2)

			after, _ := d.Get(nil)
			AssertEqual(len(after), 5)
			for i := range after {
				AssertEqual(field(after[i], "_id"), field(before[i], "_id"))
				if i == 0 || i == 3 {
					AssertEqual(field(after[i], "x"), "true")
					AssertEqual(field(after[i], "_updatedAt"), "2024-01-01T00:01:00.000Z")
					AssertEqual(field(after[i], "_createdAt"), field(before[i], "_createdAt"))
					continue
				}
				AssertTrue(after[i].Equal(before[i]))
			}
		})

		a.Alternative("delete", func(a *A) {
			n, err := d.Delete(q(`{"hit":true}`))
			AssertNil(err)
			AssertEqual(n, 2)

			after, _ := d.Get(nil)
			AssertEqual(len(after), 3)
			AssertTrue(after[0].Equal(before[1]))
			AssertTrue(after[1].Equal(before[2]))
			AssertTrue(after[2].Equal(before[4]))
		})

		a.Alternative("nothing matches", func(a *A) {
			n, err := d.Update(q(`{"hit":"nope"}`), q(`{"x":true}`))
			AssertNil(err)
			AssertEqual(n, 0)

			n, err = d.Delete(q(`{"hit":"nope"}`))
			AssertNil(err)
			AssertEqual(n, 0)
		})
	})
}

func TestDriver_Clear(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	d := NewJSON(filename)
	AssertNil(d.Connect())
	d.Set(q(`{"a":1}`))

	AssertNil(d.Clear())

	n, _ := d.Len()
	AssertEqual(n, 0)
	AssertEqual(readFile(filename), "[]\n")
}

func TestDriver_ManualAndFlushOnDisconnect(t *testing.T) {

	Alternative("manual without flush loses changes", func(a *A) {
		filename := filepath.Join(t.TempDir(), "db.json")
		os.WriteFile(filename, []byte("[]\n"), 0644)

		d := NewJSON(filename, WithPolicy(Manual))
		AssertNil(d.Connect())
		d.Set(q(`{"a":1}`))
		AssertNil(d.Disconnect())

		AssertEqual(readFile(filename), "[]\n")
	})

	Alternative("flush on disconnect persists", func(a *A) {
		filename := filepath.Join(t.TempDir(), "db.json")

		d := NewJSON(filename, WithPolicy(Manual), WithFlushOnDisconnect(true))
		AssertNil(d.Connect())
		d.Set(q(`{"a":1}`))
		AssertNil(d.Disconnect())
		AssertFalse(d.Connected())

		d2 := NewJSON(filename)
		AssertNil(d2.Connect())
		n, _ := d2.Count(q(`{"a":1}`))
		AssertEqual(n, 1)
	})
}

func TestDriver_Persistence(t *testing.T) {

	cases := []struct {
		name string
		new  func(filename string) *Driver
		file string
	}{
		{"json", func(f string) *Driver { return NewJSON(f) }, "db.json"},
		{"yaml", func(f string) *Driver { return NewYAML(f, codec.NewYAML()) }, "db.yaml"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), c.file)

			d := c.new(filename)
			AssertNil(d.Connect())
			first, _ := d.Set(q(`{"z":1,"a":{"y":"true","b":[1,"2"]}}`))
			d.Set(q(`{"when":"2024-01-01"}`))
			AssertNil(d.Disconnect())

			d = c.new(filename)
			AssertNil(d.Connect())
			records, _ := d.Get(nil)
			AssertEqual(len(records), 2)
			AssertEqual(records[0].Keys(), first.Keys())
			AssertTrue(records[0].Equal(first))
			AssertEqual(field(records[1], "when"), "2024-01-01")

			// the _id index survives the round trip
			found, err := d.GetOne(value.NewMap().Set("_id", value.String(field(first, "_id"))))
			AssertNil(err)
			AssertTrue(found.Equal(first))
		})
	}
}

func TestDriver_Reload(t *testing.T) {

	Alternative("flushed driver", func(a *A) {
		filename := filepath.Join(t.TempDir(), "db.json")
		d := NewJSON(filename, WithPolicy(Manual))
		AssertNil(d.Connect())
		d.Set(q(`{"a":1}`))
		AssertNil(d.Flush())

		a.Alternative("reload discards unsaved changes", func(a *A) {
			d.Set(q(`{"a":2}`))
			AssertNil(d.Reload())
			n, _ := d.Len()
			AssertEqual(n, 1)
		})

		a.Alternative("reload surfaces parse errors", func(a *A) {
			os.WriteFile(filename, []byte(`[{"a":`), 0644)

			err := d.Reload()
			var parseErr *ParseError
			AssertTrue(errors.As(err, &parseErr))

			n, _ := d.Len()
			AssertEqual(n, 1)
		})

		a.Alternative("connect again reloads", func(a *A) {
			d.Set(q(`{"a":2}`))
			AssertNil(d.Connect())
			n, _ := d.Len()
			AssertEqual(n, 1)
		})

		a.Alternative("reload a missing file empties", func(a *A) {
			os.Remove(filename)
			AssertNil(d.Reload())
			n, _ := d.Len()
			AssertEqual(n, 0)
		})
	})
}

func TestDriver_ConnectParseError(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	broken := `[{"a":`
	os.WriteFile(filename, []byte(broken), 0644)

	Alternative("strict by default", func(a *A) {
		d := NewJSON(filename)
		err := d.Connect()
		var parseErr *ParseError
		AssertTrue(errors.As(err, &parseErr))
		AssertEqual(parseErr.Format, "json")
		AssertFalse(d.Connected())
	})

	Alternative("lenient starts empty", func(a *A) {
		d := NewJSON(filename, WithLenientConnect(true))
		AssertNil(d.Connect())
		n, _ := d.Len()
		AssertEqual(n, 0)
		AssertEqual(readFile(filename), broken)

		d.Set(q(`{"a":1}`))
		AssertNotEqual(readFile(filename), broken)
	})
}

func TestDriver_LegacyLayout(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	os.WriteFile(filename, []byte(`{"records":{"k1":{"_id":"1","n":1},"k2":{"_id":"2","n":2}}}`), 0644)

	d := NewJSON(filename)
	AssertNil(d.Connect())

	records, _ := d.Get(nil)
	AssertEqual(len(records), 2)
	AssertEqual(field(records[0], "_id"), "1")
	AssertEqual(field(records[1], "_id"), "2")

	// rewritten as an array by the next save
	AssertNil(d.Flush())
	AssertEqual(readFile(filename)[0:1], "[")
}

func TestDriver_Drop(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	d := NewJSON(filename)
	AssertNil(d.Connect())
	d.Set(q(`{"a":1}`))

	AssertNil(d.Drop())
	AssertFalse(fileExists(filename))
	AssertTrue(d.Connected())
	n, _ := d.Len()
	AssertEqual(n, 0)

	d.Set(q(`{"a":2}`))
	AssertTrue(fileExists(filename))
}

func TestDriver_FailingWriter(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	d := NewJSON(filename)
	AssertNil(d.Connect())
	d.Set(q(`{"a":1}`))
	before := readFile(filename)

	failing := persistence.WriterFunc(func(filename string, data []byte, perm os.FileMode) error {
		return fs.ErrPermission
	})
	d2 := NewJSON(filename, WithWriter(failing))
	AssertNil(d2.Connect())

	record, err := d2.Set(q(`{"a":2}`))
	AssertNotNil(record)
	var ioErr *IOError
	AssertTrue(errors.As(err, &ioErr))
	AssertTrue(errors.Is(err, fs.ErrPermission))

	// memory has diverged from disk
	n, _ := d2.Len()
	AssertEqual(n, 2)
	AssertEqual(readFile(filename), before)

	AssertNil(d2.Disconnect())
}

func TestDriver_RejectsUnpersistableValues(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	d := NewJSON(filename)
	AssertNil(d.Connect())
	d.Set(q(`{"a":1}`))
	before := readFile(filename)

	record, err := d.Set(value.NewMap().Set("x", value.Number(math.NaN())))
	AssertNil(record)
	AssertTrue(errors.Is(err, ErrNotFinite))

	_, err = d.Set(value.NewMap().Set("x", value.String("\xff\xfe")))
	AssertTrue(errors.Is(err, ErrInvalidUTF8))

	n, err := d.Update(nil, value.NewMap().Set("x", value.Number(math.Inf(1))))
	AssertTrue(errors.Is(err, ErrNotFinite))
	AssertEqual(n, 0)

	total, _ := d.Len()
	AssertEqual(total, 1)
	AssertEqual(readFile(filename), before)

	// later writes still reach the file
	_, err = d.Set(q(`{"ok":1}`))
	AssertNil(err)
	total, _ = d.Len()
	AssertEqual(total, 2)
	stored, err := codec.NewJSON().Decode([]byte(readFile(filename)))
	AssertNil(err)
	AssertEqual(len(stored), 2)
}

func TestDriver_FlushOnDisconnectFailureKeepsConnection(t *testing.T) {

	fail := true
	writer := persistence.WriterFunc(func(filename string, data []byte, perm os.FileMode) error {
		if fail {
			return fs.ErrPermission
		}
		return persistence.AtomicWriter{}.WriteFile(filename, data, perm)
	})

	d := NewJSON(filepath.Join(t.TempDir(), "db.json"), WithPolicy(Manual), WithFlushOnDisconnect(true), WithWriter(writer))
	AssertNil(d.Connect())

	AssertNotNil(d.Disconnect())
	AssertTrue(d.Connected())

	fail = false
	AssertNil(d.Disconnect())
	AssertFalse(d.Connected())
}

func TestDriver_LogFields(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	AssertNil(os.WriteFile(filename, []byte(`{"foo":1}`), 0644))

	out := &bytes.Buffer{}
	d := NewJSON(filename, WithLogger(zerolog.New(out)))
	AssertNil(d.Connect())
	d.Set(q(`{"a":1}`))
	AssertNil(d.Drop())

	AssertTrue(strings.Contains(out.String(), "top level object without records"))
	AssertTrue(strings.Contains(out.String(), "snapshot saved"))

	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		AssertEqual(strings.Count(line, `"file":`), 1)
		AssertEqual(strings.Count(line, `"format":"json"`), 1)
	}
}

func TestDriver_IDGenerator(t *testing.T) {

	i := 0
	d := NewJSON(filepath.Join(t.TempDir(), "db.json"), WithIDGenerator(func() string {
		i++
		return "user-" + strconv.Itoa(i)
	}))
	AssertNil(d.Connect())

	record, _ := d.Set(q(`{}`))
	AssertEqual(field(record, "_id"), "user-1")
}

func TestDriver_Describe(t *testing.T) {
	d := NewYAML("db.yml", codec.NewYAML(), WithPolicy(Manual))
	AssertEqual(d.Filename(), "db.yml")
	AssertEqual(d.Format(), "yaml")
	AssertEqual(d.Policy().String(), "manual")
}
