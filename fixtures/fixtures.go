package fixtures

import (
	_ "embed"
)

//go:embed abi/Membership.json
var MembershipABI string

//go:embed addresses.yaml
var AddressBook []byte

//go:embed config/config.yaml.template
var ConfigTemplate []byte
