package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/guildwallet/walletdb/store"
)

// parseDocument decodes a relaxed Extended JSON object.
func parseDocument(s string) (store.Document, error) {
	var raw bson.M
	if err := bson.UnmarshalExtJSON([]byte(s), false, &raw); err != nil {
		return nil, fmt.Errorf("invalid document %q: %w", s, err)
	}
	return store.Document(plain(raw).(map[string]any)), nil
}

// parseValue decodes s as a relaxed Extended JSON value. Input that is not
// valid JSON is returned as a string so that `push ... items sword` works.
func parseValue(s string) any {
	var raw bson.M
	if err := bson.UnmarshalExtJSON([]byte(`{"v":`+s+`}`), false, &raw); err != nil {
		return s
	}
	return plain(raw["v"])
}

// parseDeltas parses field=number pairs. Integers are kept as int64.
func parseDeltas(args []string) (map[string]any, error) {
	deltas := make(map[string]any, len(args))
	for _, arg := range args {
		field, num, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid increment %q: want field=number", arg)
		}
		if i, err := strconv.ParseInt(num, 10, 64); err == nil {
			deltas[field] = i
			continue
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid increment %q: %w", arg, err)
		}
		deltas[field] = f
	}
	return deltas, nil
}

// writeDocument prints doc as one line of relaxed Extended JSON.
func writeDocument(w io.Writer, doc store.Document) error {
	b, err := bson.MarshalExtJSON(map[string]any(doc), false, false)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// plain converts decoded BSON containers into map[string]any and []any.
func plain(v any) any {
	switch val := v.(type) {
	case bson.M:
		return plainMap(val)
	case map[string]any:
		return plainMap(val)
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		return plainSlice(val)
	case []any:
		return plainSlice(val)
	default:
		return v
	}
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}

func plainSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = plain(v)
	}
	return out
}
