// Package rtcctx carries command line flags through a context.
package rtcctx

import "context"

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexDevice
)

func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// DeviceIndex returns the adapter index selected with SetDeviceIndex, -1 if
// none was selected.
func DeviceIndex(ctx context.Context) int {
	val := ctx.Value(ctxIndexDevice)
	if val == nil {
		return -1
	}
	return val.(int)
}

func SetDeviceIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, ctxIndexDevice, index)
}
