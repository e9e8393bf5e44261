package postgres

import (
	log "github.com/mgutz/logxi"

	"github.com/mgutz/pgreset"
)

var logger log.Logger

func init() {
	logger = pgreset.NewLogger("pgreset:postgres")
}
