package writer

import "errors"

var ErrShortBlobEntry = errors.New("writer: truncated blob entry record")
