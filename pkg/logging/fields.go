package logging

import (
	"github.com/grace-platform/grace/pkg/construct"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type resourceField struct {
	id construct.ResourceId
}

func (f resourceField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", f.id.QualifiedTypeName())
	if f.id.Namespace != "" {
		enc.AddString("stack", f.id.Namespace)
	}
	enc.AddString("name", f.id.Name)
	return nil
}

func ResourceField(id construct.ResourceId) zap.Field {
	return zap.Object("resource", resourceField{id: id})
}

func StackField(name string) zap.Field {
	return zap.String("stack", name)
}

func FileField(path string) zap.Field {
	return zap.String("file", path)
}

// Redacted logs whether a sensitive value was present without logging the value.
func Redacted(key, value string) zap.Field {
	if value == "" {
		return zap.String(key, "")
	}
	return zap.String(key, "<redacted>")
}
