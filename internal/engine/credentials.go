package engine

// SetAPIKey stores the API key sent as X-API-KEY on later requests.
func (e *Engine) SetAPIKey(key string) error {
	return e.session.SetAPIKey(key)
}

// SetBearer stores the token sent as a bearer Authorization header on
// later requests.
func (e *Engine) SetBearer(token string) error {
	return e.session.SetBearer(token)
}

// HasCredentials reports which credentials are configured.
func (e *Engine) HasCredentials() (apiKey, bearer bool) {
	return e.session.APIKey() != "", e.session.Bearer() != ""
}
