package main

import (
	"github.com/danielpaulus/go-rspstub/rsp"
	log "github.com/sirupsen/logrus"
)

// stubHandler answers every request with an empty packet, which debuggers read as
// "not supported". It only understands how a session ends.
type stubHandler struct {
	requests int
}

func (h *stubHandler) HandlePacket(request []byte) ([]byte, error) {
	h.requests++
	if len(request) == 0 {
		return []byte{}, nil
	}
	switch request[0] {
	case 'D':
		log.Info("debugger detached")
		return []byte("OK"), rsp.ErrDetach
	case 'k':
		log.Info("debugger killed the session")
		return nil, rsp.ErrDetach
	case 'X':
		// Binary payloads arrive escaped, only the length is logged.
		log.Debugf("binary write of %d bytes ignored", len(rsp.Unescape(append([]byte(nil), request...))))
		return []byte{}, nil
	}
	log.Debugf("unsupported request %q", request)
	return []byte{}, nil
}
