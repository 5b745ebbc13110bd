package domain

// ChannelProfile is the public view of a user's channel.
type ChannelProfile struct {
	ID                        string `json:"id"`
	Username                  string `json:"username"`
	Fullname                  string `json:"fullname"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int    `json:"subscribersCount"`
	ChannelsSubscribedToCount int    `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// SubscriptionState is the result of toggling a subscription.
type SubscriptionState struct {
	ChannelID  string `json:"channelId"`
	Subscribed bool   `json:"subscribed"`
}
