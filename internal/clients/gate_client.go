package clients

import (
	gateapi "github.com/gateio/gateapi-go/v6"
)

// NewGateClient builds a Gate.io API v4 client. Credentials are attached
// per request by the caller via gateapi.ContextGateAPIV4.
func NewGateClient() *gateapi.APIClient {
	return gateapi.NewAPIClient(gateapi.NewConfiguration())
}
