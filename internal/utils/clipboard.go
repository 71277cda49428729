package utils

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// clipboardWrite is swapped out in tests; CI machines have no clipboard.
var clipboardWrite = clipboard.WriteAll

// CopyToClipboard puts content on the system clipboard
func CopyToClipboard(content string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this system")
	}
	if err := clipboardWrite(content); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
