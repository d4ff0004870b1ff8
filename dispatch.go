package nanoactor

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/pingcap/errors"

	"github.com/aclisp/nanoactor/id"
)

// Actor is the contract every remotely-addressable object satisfies.
// Exported methods are the invocation targets `remoteCall` can reach by
// name; the kernel looks them up with reflect the way the teacher's
// LocalHandler resolves `component.Handler.Method` (cluster/handler.go),
// generalized from the teacher's fixed
// `func(receiver, *session.Session, arg) error` shape to one of:
//
//	func(ctx context.Context) error
//	func(ctx context.Context) (*Result, error)
//	func(ctx context.Context, arg *Arg) error
//	func(ctx context.Context, arg *Arg) (*Result, error)
type Actor interface {
	ActorID() id.ActorId
}

// ArgCodec (de)serializes call arguments and reply values. The default,
// jsonArgCodec, matches the envelope's own default JSON wire format (spec.md
// §6 names JSON as the wire default); callers may supply their own via
// Option WithArgCodec, mirroring the teacher's pluggable env.Serializer.
type ArgCodec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonArgCodec struct{}

func (jsonArgCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonArgCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()

// invoke looks up invocationTarget on actor by name and calls it with
// ctx and the decoded argument (if the method takes one), returning the
// encoded result bytes. Only args[0] is decoded; genericSubs is not
// passed to invoke at all (DispatchCall receives it and ignores it).
func invoke(ctx context.Context, codec ArgCodec, actor Actor, invocationTarget string, args [][]byte) ([]byte, error) {
	method := reflect.ValueOf(actor).MethodByName(invocationTarget)
	if !method.IsValid() {
		return nil, errors.Errorf("nanoactor: actor %s has no method %q", actor.ActorID(), invocationTarget)
	}
	mt := method.Type()

	if mt.NumIn() < 1 || mt.In(0) != ctxType {
		return nil, errors.Errorf("nanoactor: %s.%s must take context.Context as its first parameter", actor.ActorID(), invocationTarget)
	}
	if mt.NumIn() > 2 {
		return nil, errors.Errorf("nanoactor: %s.%s takes too many parameters for a remote invocation", actor.ActorID(), invocationTarget)
	}

	callArgs := []reflect.Value{reflect.ValueOf(ctx)}
	if mt.NumIn() == 2 {
		argType := mt.In(1)
		elemType := argType
		if argType.Kind() == reflect.Ptr {
			elemType = argType.Elem()
		}
		argPtr := reflect.New(elemType)
		if len(args) > 0 && len(args[0]) > 0 {
			if err := codec.Unmarshal(args[0], argPtr.Interface()); err != nil {
				return nil, &ErrDecoding{Cause: err}
			}
		}
		if argType.Kind() == reflect.Ptr {
			callArgs = append(callArgs, argPtr)
		} else {
			callArgs = append(callArgs, argPtr.Elem())
		}
	}

	results := method.Call(callArgs)

	var resultValue reflect.Value
	var errValue reflect.Value
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		errValue = results[0]
	case 2:
		resultValue = results[0]
		errValue = results[1]
	default:
		return nil, errors.Errorf("nanoactor: %s.%s returns too many values for a remote invocation", actor.ActorID(), invocationTarget)
	}

	if !errValue.Type().Implements(errType) && errValue.Type() != errType {
		return nil, errors.Errorf("nanoactor: %s.%s's last return value must be error", actor.ActorID(), invocationTarget)
	}
	if !errValue.IsNil() {
		return nil, errValue.Interface().(error)
	}

	if !resultValue.IsValid() || (resultValue.Kind() == reflect.Ptr && resultValue.IsNil()) {
		return nil, nil
	}
	out, err := codec.Marshal(resultValue.Interface())
	if err != nil {
		return nil, &ErrDecoding{Cause: err}
	}
	return out, nil
}
