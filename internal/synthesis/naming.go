package synthesis

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/internal/storage"

	"github.com/google/uuid"
)

// OutputName is output_<user>_<type>_<stem>_<token><ext>. The token is
// always appended so two runs never share a name.
func OutputName(userID uint, itemType, filename, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("output_%d_%s_%s_%s%s",
		userID,
		storage.SanitizeComponent(itemType, "item"),
		storage.SanitizeComponent(stem, "image"),
		token,
		ext,
	)
}
