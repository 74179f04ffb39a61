// Package sd implements SOME/IP-SD: the Service Discovery sub-protocol
// carried in-band inside SOME/IP messages addressed to service_id=0xFFFF,
// method_id=0x8100. It provides the entries/options wire codec and the
// SdClient/SdServer types that exchange FindService, OfferService, and
// SubscribeEventgroup entries over the multicast group.
package sd
