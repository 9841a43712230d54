package policy

import "encoding/json"

type acrsClaim struct {
	Essential bool   `json:"essential"`
	Value     string `json:"value"`
}

type claimsRequest struct {
	AccessToken struct {
		Acrs acrsClaim `json:"acrs"`
	} `json:"access_token"`
}

// ClaimsChallenge renders the claims request that asks the authority for a
// token satisfying the authentication context contextID:
//
//	{"access_token":{"acrs":{"essential":true,"value":"c3"}}}
func ClaimsChallenge(contextID string) string {
	var req claimsRequest
	req.AccessToken.Acrs = acrsClaim{Essential: true, Value: contextID}
	b, _ := json.Marshal(req)
	return string(b)
}
