// Command dwmagent builds the DLL that gets injected into the compositor
// process on the legacy capture path. Its only export is the remote-thread
// entry point the viewer starts once the DLL is loaded: see
// internal/agent for the hook and control-plane logic itself.
package main

/*
#include <stdint.h>
*/
import "C"

import "github.com/Happy-Ferret/win32-screen-view/internal/agent"

//export AgentEntryPoint
func AgentEntryPoint(hostHWND uintptr) uint32 {
	return uint32(agent.Run(hostHWND))
}

func main() {}
