// internal/terminal/command.go
package terminal

// LineTerminator ends every command sent to the device
const LineTerminator = "\r\n"

// FrameCommand returns the bytes written for one command
func FrameCommand(text string) []byte {
	return []byte(text + LineTerminator)
}
