package agent

import "github.com/m-mizutani/goerr/v2"

var (
	ErrUnsupportedAction = goerr.New("unsupported action")
	ErrMissingParameter  = goerr.New("missing action parameter")
)
