package auth

import "errors"

var (
	MissingAccessTokenErr = errors.New("response carried no access token")
	MissingMFASessionErr  = errors.New("response carried no mfa session id")
	MissingUserErr        = errors.New("response carried no user")
)
