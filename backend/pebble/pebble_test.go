/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package pebble

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/dursunkoc/incubator-samoa/backend"
)

func makeBackend(t *testing.T) backend.Backend {
	conf := NewConfig()
	tmp, err := os.MkdirTemp(``, `*`)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmp) })

	conf.Dir = tmp
	backend, err := NewPebbleBackend(`test`, conf)
	if err != nil {
		t.Fatal(err)
	}

	return backend
}

func TestPebble_Set(t *testing.T) {
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
}

func TestPebble_SetExpiry(t *testing.T) {
	backend := makeBackend(t)
	defer backend.Close()

	if err := backend.Set([]byte(`short`), []byte(`1`), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	if err := backend.Set([]byte(`long`), []byte(`1`), time.Hour); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)

	if r, _ := backend.Get([]byte(`short`)); r != nil {
		t.Error(`expired record exist`)
	}

	if r, _ := backend.Get([]byte(`long`)); r == nil {
		t.Error(`live record missing`)
	}

	i := backend.Iterator()
	defer i.Close()

	var keys []string
	for i.SeekToFirst(); i.Valid(); i.Next() {
		keys = append(keys, string(i.Key()))
	}

	if !reflect.DeepEqual(keys, []string{`long`}) {
		t.Errorf(`iterator must skip expired records, have %v`, keys)
	}
}

func TestPebble_Get(t *testing.T) {
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
}

func TestPebble_GetAll(t *testing.T) {
	backend := makeBackend(t)
	defer backend.Close()

	var keyVals []string
	for i := 1; i <= 1000; i++ {
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

	sort.Strings(keyValsHave)
	if !reflect.DeepEqual(keyVals, keyValsHave) {
		t.Fail()
	}
}

func TestPebble_Delete(t *testing.T) {
	backend := makeBackend(t)
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

func TestPebble_PrefixedIterator(t *testing.T) {
	backend := makeBackend(t)
	defer backend.Close()

	for i := 1; i <= 100; i++ {
		if err := backend.Set([]byte(fmt.Sprint(i)), []byte(`0`), 0); err != nil {
			t.Fatal(err)
		}
	}

	i := backend.PrefixedIterator([]byte(`5`))
	defer i.Close()

	var recs []string
	for i.SeekToFirst(); i.Valid(); i.Next() {
		recs = append(recs, string(i.Key()))
	}

	expected := []string{`5`, `50`, `51`, `52`, `53`, `54`, `55`, `56`, `57`, `58`, `59`}
	if !reflect.DeepEqual(recs, expected) {
		t.Errorf(`expected : %v, got: %v`, expected, recs)
	}
}
