package domain

import "github.com/pion/webrtc/v4"

// The relay forwards handshake artifacts verbatim; the pion types are used
// only as the SDP/ICE data model, no media engine is ever constructed.
type (
	SessionDescription = webrtc.SessionDescription
	ICECandidate       = webrtc.ICECandidateInit
)
