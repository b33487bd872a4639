package errors

import "net/http"

// ErrorCode identifies a failure category.  Codes are grouped by layer:
//
//	1xxx — generic / request
//	2xxx — structured store
//	3xxx — external data providers
//	4xxx — AI completion service
//	5xxx — infrastructure (cache, config)
type ErrorCode int

const (
	// CodeOK is the zero value and never carried by a real error.
	CodeOK ErrorCode = 0

	// CodeUnknown marks errors that could not be classified.
	CodeUnknown ErrorCode = 1000

	// CodeInternal marks unexpected server-side failures.
	CodeInternal ErrorCode = 1001

	// CodeInvalidParam marks malformed or missing request input.
	CodeInvalidParam ErrorCode = 1002

	// CodeNotFound marks a missing entity of any kind.
	CodeNotFound ErrorCode = 1003

	// CodeUnavailable marks a dependency that could not be reached.
	CodeUnavailable ErrorCode = 1004

	// CodeStoreQueryError marks a failed query against the material store.
	CodeStoreQueryError ErrorCode = 2000

	// CodeMaterialNotFound marks a material id that resolved to no row.
	CodeMaterialNotFound ErrorCode = 2001

	// CodeProviderError marks a failed call to an external data provider.
	// Provider failures are recovered to nil results at the adapter boundary;
	// this code appears in logs, never in API responses.
	CodeProviderError ErrorCode = 3000

	// CodeProviderDecode marks a provider response that could not be parsed.
	CodeProviderDecode ErrorCode = 3001

	// CodeCompletionError marks a failed AI completion call.
	CodeCompletionError ErrorCode = 4000

	// CodeCompletionDisabled marks an AI call attempted without a credential.
	CodeCompletionDisabled ErrorCode = 4001

	// CodeCacheError marks a cache read/write failure.
	CodeCacheError ErrorCode = 5000

	// CodeSerialization marks a marshal/unmarshal failure.
	CodeSerialization ErrorCode = 5001

	// CodeConfigError marks invalid or unloadable configuration.
	CodeConfigError ErrorCode = 5002
)

var codeNames = map[ErrorCode]string{
	CodeOK:                 "ok",
	CodeUnknown:            "unknown",
	CodeInternal:           "internal",
	CodeInvalidParam:       "invalid_param",
	CodeNotFound:           "not_found",
	CodeUnavailable:        "unavailable",
	CodeStoreQueryError:    "store_query_error",
	CodeMaterialNotFound:   "material_not_found",
	CodeProviderError:      "provider_error",
	CodeProviderDecode:     "provider_decode",
	CodeCompletionError:    "completion_error",
	CodeCompletionDisabled: "completion_disabled",
	CodeCacheError:         "cache_error",
	CodeSerialization:      "serialization",
	CodeConfigError:        "config_error",
}

// String returns the snake_case name of the code, or "unknown" for
// unregistered values.
func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "unknown"
}

// HTTPStatus maps the code to the HTTP status the interface layer should
// return.  Provider and completion failures never surface as errors (they
// degrade result richness instead), so their mapping is defensive only.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeMaterialNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
