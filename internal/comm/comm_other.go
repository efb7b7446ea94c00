//go:build !windows

package comm

// ViewerCommunicator is an opaque placeholder on non-Windows builds.
type ViewerCommunicator struct{}

func NewViewerCommunicator(compositorImage, agentDLLPath, agentDLLName, entryPointName string) (*ViewerCommunicator, error) {
	return nil, ErrNotSupported
}

func (c *ViewerCommunicator) HWND() uintptr          { return 0 }
func (c *ViewerCommunicator) Close()                 {}
func (c *ViewerCommunicator) State() HandshakeState  { return Disconnected }
func (c *ViewerCommunicator) SendNewTexture(uintptr) {}
func (c *ViewerCommunicator) SendNewScreen(Rect)     {}

// AgentCommunicator is an opaque placeholder on non-Windows builds.
type AgentCommunicator struct{}

func NewAgentCommunicator(viewerHWND uintptr, onNewTexture func(uintptr), onNewScreen func(Rect), onTimeout func()) (*AgentCommunicator, error) {
	return nil, ErrNotSupported
}

func (c *AgentCommunicator) HWND() uintptr    { return 0 }
func (c *AgentCommunicator) Close()           {}
func (c *AgentCommunicator) SendLog(string)   {}
