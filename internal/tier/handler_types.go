package tier

type LookupResponse struct {
	Tier      Tier `json:"tier"`      // Caller's resolved tier
	Defaulted bool `json:"defaulted"` // True when the subscription service could not be used
	Required  Tier `json:"required"`  // Minimum tier for document operations
	Allowed   bool `json:"allowed"`   // Whether document operations are permitted
}
