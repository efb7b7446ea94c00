//go:build !windows

package inject

import "time"

func ProcessIDForName(name string) (uint32, error) { return 0, ErrProcessNotFound }

func IsDLLLoaded(pid uint32, moduleName string) (bool, error) { return false, ErrProcessNotFound }

func GetFunctionOffset(moduleName, functionName string) (uintptr, error) {
	return 0, ErrModuleNotFound
}

func CallRemoteFunc(pid uint32, moduleName string, offset uintptr, argument []byte, wait time.Duration) (uint32, error) {
	return 0, ErrProcessNotFound
}

func CallRemoteFuncRaw(pid uint32, moduleName string, offset uintptr, rawArg uintptr, wait time.Duration) (uint32, error) {
	return 0, ErrProcessNotFound
}
