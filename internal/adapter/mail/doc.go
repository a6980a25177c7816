// Package mail implements the notification collaborator: it tells every giver
// who their recipient is through one of several providers. Each message is
// attempted once; the caller receives a per-giver verdict and nothing is
// retried.
package mail
