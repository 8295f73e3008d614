package app

import (
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/domain"
)

// Per-provider SIP hosts used to dial a number through that provider.
const (
	vapiSipHost       = "sip.vapi.ai"
	retellSipHost     = "sip.retellai.com"
	elevenLabsSipHost = "sip.rtc.elevenlabs.io"
)

// SipURI returns the SIP URI to dial number through the given provider.
// This is the single home for the per-provider URI templates; it is pure so
// it can be exercised without any network.
func SipURI(key domain.ProviderKey, number string) string {
	switch key {
	case domain.ProviderVapi:
		return "sip:" + number + "@" + vapiSipHost
	case domain.ProviderRetell:
		return "sip:" + number + "@" + retellSipHost
	case domain.ProviderElevenLabs:
		return "sip:" + number + "@" + elevenLabsSipHost
	}
	return ""
}
