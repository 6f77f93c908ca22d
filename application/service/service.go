// Package service registers the methods of a struct as worksheet functions
// described by struct tags.
package service

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/xllconnector/xll-sdk/go/application/registry"
)

// Service is embedded in service structs to provide shared metadata.
// Tag format: `category:"Math" prefix:"MATH."`
type Service struct{}

// Op is a field type for declaring exported functions.
// Tag format:
//
//	`method:"Hypot" name:"HYPOT" desc:"Hypotenuse" args:"x,y" help:"first side|second side" volatile:"true" threadsafe:"true"`
//
// Only method is required. The exported name defaults to the service
// prefix followed by the field name.
type Op struct{}

var (
	serviceType = reflect.TypeOf(Service{})
	opType      = reflect.TypeOf(Op{})
)

// MustRegister registers a service or panics.
// Use this in init() functions.
func MustRegister(reg *registry.Registry, svc any) {
	if err := Register(reg, svc); err != nil {
		panic(fmt.Sprintf("failed to register service: %v", err))
	}
}

// Register adds every Op of svc to reg.
func Register(reg *registry.Registry, svc any) error {
	svcType := reflect.TypeOf(svc)
	svcValue := reflect.ValueOf(svc)

	// Must be a pointer to struct
	if svcType == nil || svcType.Kind() != reflect.Ptr || svcType.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("service must be a pointer to struct, got %T", svc)
	}
	structType := svcType.Elem()

	meta, err := extractServiceMetadata(structType)
	if err != nil {
		return err
	}
	ops, err := extractOperations(structType, meta)
	if err != nil {
		return err
	}

	for _, op := range ops {
		method := svcValue.MethodByName(op.methodName)
		if !method.IsValid() {
			return fmt.Errorf("service %s: no method %s for function %s (field %s)",
				structType.Name(), op.methodName, op.name, op.fieldName)
		}

		b := reg.Add(op.name, method.Interface()).
			Description(op.description).
			Category(op.category)
		for i, arg := range op.args {
			help := ""
			if i < len(op.help) {
				help = op.help[i]
			}
			b.Arg(arg, help)
		}
		if op.volatile {
			b.Volatile()
		}
		if op.threadSafe {
			b.ThreadSafe()
		}
		if err := b.Err(); err != nil {
			return fmt.Errorf("service %s: %w", structType.Name(), err)
		}
	}
	return nil
}

type serviceMeta struct {
	category string
	prefix   string
}

// extractServiceMetadata finds the embedded Service field and parses its tags.
func extractServiceMetadata(t reflect.Type) (serviceMeta, error) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type == serviceType {
			return serviceMeta{
				category: field.Tag.Get("category"),
				prefix:   field.Tag.Get("prefix"),
			}, nil
		}
	}
	return serviceMeta{}, fmt.Errorf("struct %s must embed service.Service", t.Name())
}

// opInfo holds function metadata extracted from struct fields.
type opInfo struct {
	fieldName   string
	methodName  string
	name        string
	description string
	category    string
	args        []string
	help        []string
	volatile    bool
	threadSafe  bool
}

// extractOperations finds all Op fields and extracts their metadata.
func extractOperations(t reflect.Type, meta serviceMeta) ([]opInfo, error) {
	var ops []opInfo

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type != opType {
			continue
		}
		tag := field.Tag

		methodName := tag.Get("method")
		if methodName == "" {
			// A method cannot share the field's name, so the tag is required.
			return nil, fmt.Errorf("field %s: missing 'method' tag", field.Name)
		}
		name := tag.Get("name")
		if name == "" {
			name = meta.prefix + field.Name
		}
		category := tag.Get("category")
		if category == "" {
			category = meta.category
		}

		volatile, err := boolTag(tag, "volatile")
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		threadSafe, err := boolTag(tag, "threadsafe")
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		ops = append(ops, opInfo{
			fieldName:   field.Name,
			methodName:  methodName,
			name:        name,
			description: tag.Get("desc"),
			category:    category,
			args:        splitTag(tag.Get("args"), ","),
			help:        splitTag(tag.Get("help"), "|"),
			volatile:    volatile,
			threadSafe:  threadSafe,
		})
	}

	if len(ops) == 0 {
		return nil, fmt.Errorf("service has no functions (no Op fields)")
	}
	return ops, nil
}

func boolTag(tag reflect.StructTag, key string) (bool, error) {
	s, ok := tag.Lookup(key)
	if !ok || s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("tag %s: %w", key, err)
	}
	return b, nil
}

func splitTag(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
