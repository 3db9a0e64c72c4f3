// Package secret resolves credentials referenced from gateway configuration.
//
// Configuration values may embed environment variables (${TAVILY_API_KEY})
// or secret references of the form secretref:<provider>:<ref>:
//
//	tavily_api_key: secretref:env:TAVILY_API_KEY
//	jwt_secret:     secretref:file:jwt_hmac
//	authorization:  Bearer secretref:env:UPSTREAM_TOKEN
//
// Two providers are built in: "env" reads the process environment and "file"
// reads one file per secret from a directory, as mounted by container
// orchestrators under /run/secrets.
package secret
