package apiclient

import "fmt"

// Generic helpers wrapping Client.get/post/delete with typed decoding.
// Resource files stay free of HTTP boilerplate.

// getResource performs a GET request to the given path and decodes the
// response body into a value of type T.
//
// Example:
//
//	user, err := getResource[ChatUser](c, "/api/v1/users/42")
func getResource[T any](c *Client, path string) (*T, error) {
	var result T
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// createResource performs a POST request to the given path with the
// provided body and decodes the response into a value of type T.
//
// Example:
//
//	user, err := createResource[ChatUser](c, "/api/v1/users", req)
func createResource[T any](c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.post(path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// deleteResource performs a DELETE request to the given path.
func deleteResource(c *Client, path string) error {
	return c.delete(path, nil)
}

// resourcePath builds a resource path by formatting a path template with
// the given arguments.
//
// Example:
//
//	path := resourcePath("/api/v1/users/%d", uid)
func resourcePath(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
