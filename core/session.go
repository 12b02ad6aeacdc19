package core

// Profile is the portal's view of a verified user.
type Profile struct {
	UserID      string `json:"userId,omitempty"`
	DSSN        DSSN   `json:"dssn"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Institution string `json:"institution,omitempty"`
	Position    string `json:"position,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Session is the client-held credential record for an authenticated user.
// It lives in memory and is mirrored into durable storage so the client can
// rehydrate across restarts.
type Session struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken,omitempty"`
	SessionID    string  `json:"sessionId"`
	User         Profile `json:"user"`
}

// Complete reports whether the session carries everything rehydration
// requires. A session missing any required part is treated the same as no
// session at all.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.SessionID != "" && s.User.DSSN != ""
}
