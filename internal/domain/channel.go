package domain

// Channel represents the delivery channel for notifications.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelPush     Channel = "push"
	ChannelTelegram Channel = "telegram"
)

// String returns the string representation of Channel.
func (c Channel) String() string {
	return string(c)
}

// IsValid checks if the channel is a valid value.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelPush, ChannelTelegram:
		return true
	}
	return false
}
