package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain fields

func Component(name string) Field {
	return String("component", name)
}

// Kind names the entity kind being generated, e.g. "capec" or "technique".
func Kind(kind string) Field {
	return String("kind", kind)
}

func EntityID(id string) Field {
	return String("entity_id", id)
}

// Store names a backing store: "postgres" or "neo4j".
func Store(name string) Field {
	return String("store", name)
}

func RunID(id string) Field {
	return String("run_id", id)
}

// Template identifies a template by its 1-based line in the template file.
func Template(line int) Field {
	return Int("template", line)
}

func Relation(name string) Field {
	return String("relation", name)
}

// Statement carries a query rendered for humans; never log statements with secrets bound.
func Statement(text string) Field {
	return String("statement", text)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
