package eventbus

// 认证事件类型
const (
	EventUserRegistered  = "auth:user-registered"
	EventLoginSucceeded  = "auth:login-succeeded"
	EventLoginFailed     = "auth:login-failed"
	EventChallengeIssued = "auth:challenge-issued"
)

// AuthTopics lists every auth event type.
var AuthTopics = []string{
	EventUserRegistered,
	EventLoginSucceeded,
	EventLoginFailed,
	EventChallengeIssued,
}

// AuthEventData 认证事件数据。永远不包含密码或验证码文本。
type AuthEventData struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Code     string `json:"code,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
