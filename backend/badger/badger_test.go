package badger

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/dursunkoc/incubator-samoa/backend"
)

func makeBackend(t *testing.T) backend.Backend {
	conf := NewConfig()
	conf.InMemory = true
	b, err := NewBadgerBackend(`test`, conf)
	if err != nil {
		t.Fatal(err)
	}

	return b
}

func TestBadger_Set(t *testing.T) {
	backend := makeBackend(t)
	defer backend.Close()

	if err := backend.Set([]byte(`100`), []byte(`100`), 0); err != nil {
		t.Fatal(err)
	}

	r, err := backend.Get([]byte(`100`))
	if err != nil {
		t.Error(err)
	}

	if !bytes.Equal(r, []byte(`100`)) {
		t.Error(`record does not exist`)
	}

	if backend.Persistent() {
		t.Error(`in memory backend is not persistent`)
	}
}

func TestBadger_SetExpiry(t *testing.T) {
	backend := makeBackend(t)
	defer backend.Close()

	if err := backend.Set([]byte(`100`), []byte(`100`), time.Second); err != nil {
		t.Fatal(err)
	}

	time.Sleep(2 * time.Second)

	r, err := backend.Get([]byte(`100`))
	if err != nil {
		t.Error(err)
	}

	if r != nil {
		t.Error(`expired record exist`)
	}
}

func TestBadger_Get(t *testing.T) {
	backend := makeBackend(t)
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

func TestBadger_GetAll(t *testing.T) {
	backend := makeBackend(t)
	defer backend.Close()

	var keyVals []string
	for i := 1; i <= 100; i++ {
		key := []byte(fmt.Sprint(i))
		val := []byte(fmt.Sprintf(`%d`, i*10))
		keyVals = append(keyVals, fmt.Sprintf(`%s-%s`, key, val))
		if err := backend.Set(key, val, 0); err != nil {
			t.Fatal(err)
		}
	}
	sort.Strings(keyVals)

	i := backend.Iterator()
	defer i.Close()

	var keyValsHave []string
	for i.SeekToFirst(); i.Valid(); i.Next() {
		keyValsHave = append(keyValsHave, fmt.Sprintf(`%s-%s`, i.Key(), i.Value()))
	}

	if err := i.Error(); err != nil {
		t.Fatal(err)
	}

	sort.Strings(keyValsHave)
	if !reflect.DeepEqual(keyVals, keyValsHave) {
		t.Fail()
	}
}

func TestBadger_PrefixedIterator(t *testing.T) {
	backend := makeBackend(t)
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

func TestBadger_Delete(t *testing.T) {
	backend := makeBackend(t)
	defer backend.Close()

	if err := backend.Set([]byte(`100`), []byte(`100`), 0); err != nil {
		t.Fatal(err)
	}

	if err := backend.Delete([]byte(`100`)); err != nil {
		t.Fatal(err)
	}

	if err := backend.Delete([]byte(`never-set`)); err != nil {
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
