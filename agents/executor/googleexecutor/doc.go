/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleexecutor completes prompts with Google Gemini models through
the genai SDK, on either Vertex AI or the Gemini API.

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
	    Project:  projectID,
	    Location: region,
	    Backend:  genai.BackendVertexAI,
	})
	if err != nil {
	    return err
	}

	exec, err := googleexecutor.New(client,
	    googleexecutor.WithModel("gemini-2.5-flash"),
	    googleexecutor.WithResourceLabels(map[string]string{"component": "issuefix"}),
	)

	text, err := exec.Complete(ctx, system, user)

# Errors

Quota exhaustion, rate limiting and transient server errors are retried
with backoff. Vertex AI surfaces these as status strings rather than typed
errors, so classification matches on the error text. Rejected credentials
are reported as changeagent.ErrAuth.

# Resource Labels

WithResourceLabels attaches labels to every Vertex AI request for billing
attribution. Defaults are read from K_SERVICE, CHAINGUARD_PRODUCT and
CHAINGUARD_TEAM. Labels are not supported by the Gemini API backend.
*/
package googleexecutor
