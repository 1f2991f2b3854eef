package memory

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestMemory_SetExpiry(t *testing.T) {
	conf := NewConfig()
	conf.ExpiredRecordCleanupInterval = 1 * time.Millisecond
	backend := NewMemoryBackend(`test`, conf)
	defer backend.Close()

	if err := backend.Set([]byte(`100`), []byte(`100`), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)

	r, err := backend.Get([]byte(`100`))
	if err != nil {
		t.Error(err)
	}

	if r != nil {
		t.Error(`record exist`)
	}
}

func TestMemory_Get(t *testing.T) {
	backend := NewMemoryBackend(`test`, NewConfig())
	defer backend.Close()

	for i := 1; i <= 1000; i++ {
		if err := backend.Set([]byte(fmt.Sprint(i)), []byte(`100`), 0); err != nil {
			t.Fatal(err)
		}
	}

	for i := 1; i <= 1000; i++ {
		val, err := backend.Get([]byte(fmt.Sprint(i)))
		if err != nil {
			t.Error(err)
		}

		if string(val) != `100` {
			t.Fail()
		}
	}

	if val, _ := backend.Get([]byte(`missing`)); val != nil {
		t.Error(`missing key must return nil`)
	}
}

func TestMemory_Iterator(t *testing.T) {
	backend := NewMemoryBackend(`test`, NewConfig())
	defer backend.Close()

	for _, k := range []string{`b`, `a`, `c`} {
		if err := backend.Set([]byte(k), []byte(k+k), 0); err != nil {
			t.Fatal(err)
		}
	}

	i := backend.Iterator()
	defer i.Close()

	var have []string
	for i.SeekToFirst(); i.Valid(); i.Next() {
		have = append(have, fmt.Sprintf(`%s-%s`, i.Key(), i.Value()))
	}

	if !reflect.DeepEqual(have, []string{`a-aa`, `b-bb`, `c-cc`}) {
		t.Errorf(`unexpected records %v`, have)
	}
}

func TestMemory_PrefixedIterator(t *testing.T) {
	backend := NewMemoryBackend(`test`, NewConfig())
	defer backend.Close()

	for _, k := range []string{`count:a`, `count:b`, `seen:a`} {
		if err := backend.Set([]byte(k), []byte(`1`), 0); err != nil {
			t.Fatal(err)
		}
	}

	i := backend.PrefixedIterator([]byte(`count:`))
	defer i.Close()

	var keys []string
	for i.SeekToFirst(); i.Valid(); i.Next() {
		keys = append(keys, string(i.Key()))
	}

	if !reflect.DeepEqual(keys, []string{`count:a`, `count:b`}) {
		t.Errorf(`unexpected keys %v`, keys)
	}
}

func TestMemory_Delete(t *testing.T) {
	backend := NewMemoryBackend(`test`, NewConfig())
	defer backend.Close()

	if err := backend.Set([]byte(`100`), []byte(`100`), 0); err != nil {
		t.Fatal(err)
	}

	if err := backend.Delete([]byte(`100`)); err != nil {
		t.Fatal(err)
	}

	val, err := backend.Get([]byte(`100`))
	if err != nil {
		t.Error(err)
	}

	if val != nil {
		t.Fail()
	}
}

func TestMemory_CopiesInput(t *testing.T) {
	backend := NewMemoryBackend(`test`, NewConfig())
	defer backend.Close()

	val := []byte(`abc`)
	if err := backend.Set([]byte(`k`), val, 0); err != nil {
		t.Fatal(err)
	}
	val[0] = 'x'

	if have, _ := backend.Get([]byte(`k`)); string(have) != `abc` {
		t.Errorf(`stored value changed to %s`, have)
	}
}
