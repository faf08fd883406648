package session

// Screen is the entry point a client opens on.
type Screen string

const (
	ScreenScan  Screen = "scan"
	ScreenLogin Screen = "login"
	ScreenHome  Screen = "home"
)

// InitialScreen maps session state to the first screen: pairing when no
// backend is known, login when credentials are missing, home otherwise.
func InitialScreen(s Session) Screen {
	if !s.IsConfigured() {
		return ScreenScan
	}
	if !s.IsAuthenticated() {
		return ScreenLogin
	}
	return ScreenHome
}
