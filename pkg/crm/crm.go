// Package crm groups the contact and list adapters the automation engine reads and mutates.
package crm

import "github.com/campaignhq/automation/pkg/protocol"

// Store is a CRM backend serving every contact and list contract of the engine.
type Store interface {
	protocol.ContactStore
	protocol.ContactMutator
	protocol.ListService
}
