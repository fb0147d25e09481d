package mtp

// SystemTransport returns the transport backed by the host's MTP stack.
// The cgo binding is linked per-platform by the build that ships it; this
// default build carries no native stack and reports no devices, which the
// connection layer treats the same as nothing attached.
func SystemTransport() Transport {
	return noTransport{}
}

type noTransport struct{}

func (noTransport) Detect() ([]RawDevice, error)      { return nil, nil }
func (noTransport) Open(RawDevice) (DeviceHandle, error) {
	return nil, &TransportError{Op: "open", Code: CodeGeneralError, Msg: "no MTP stack linked"}
}
