package event

const PasscodeIssuedDestination string = "passcode_issued"
const PasscodeIssuedConsumerDelivery string = "passcode_issued_delivery"

type PasscodeIssuedMessage struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
	TTLSeconds int64  `json:"ttl_seconds"`
}
