package binobj

import (
	"testing"
	"time"
)

type benchOrder struct {
	ID      int64   `binobj:"id"`
	Account string  `binobj:"account"`
	Symbol  string  `binobj:"symbol"`
	Qty     int32   `binobj:"qty"`
	Px      float64 `binobj:"px"`
	Placed  time.Time
}

func benchEnvelope(b *testing.B, eng *Engine) []byte {
	b.Helper()
	data, err := eng.Marshal(&benchOrder{
		ID: 9001, Account: "acct-7", Symbol: "EURUSD", Qty: 250, Px: 1.0832,
		Placed: time.Unix(1700000000, 0),
	})
	if err != nil {
		b.Fatal(err)
	}
	return data
}

func BenchmarkMarshalReflective(b *testing.B) {
	eng := NewEngine()
	in := &benchOrder{ID: 9001, Account: "acct-7", Symbol: "EURUSD", Qty: 250, Px: 1.0832}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Marshal(in); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshalReflective(b *testing.B) {
	eng := NewEngine()
	data := benchEnvelope(b, eng)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out benchOrder
		if err := eng.Unmarshal(data, &out); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFieldAccess(b *testing.B) {
	eng := NewEngine()
	data := benchEnvelope(b, eng)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		obj, err := AsObject(data)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := obj.Field("account"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBodyHash(b *testing.B) {
	body := make([]byte, 512)
	for i := range body {
		body[i] = byte(i)
	}
	b.SetBytes(int64(len(body)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BodyHash(body)
	}
}
