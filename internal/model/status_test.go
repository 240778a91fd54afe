package model

import (
    "testing"
    "time"
)

func TestRequestTransitions(t *testing.T) {
    allowed := []struct{ from, to RequestStatus }{
        {RequestPending, RequestApproved},
        {RequestPending, RequestRejected},
        {RequestApproved, RequestProcessing},
        {RequestProcessing, RequestDelivered},
        {RequestProcessing, RequestCancelled},
    }
    for _, e := range allowed {
        if !e.from.CanTransition(e.to) {
            t.Errorf("%s -> %s should be allowed", e.from, e.to)
        }
    }
    denied := []struct{ from, to RequestStatus }{
        {RequestPending, RequestDelivered},
        {RequestPending, RequestProcessing},
        {RequestApproved, RequestDelivered},
        {RequestApproved, RequestCancelled},
        {RequestDelivered, RequestPending},
        {RequestDelivered, RequestCancelled},
        {RequestCancelled, RequestApproved},
        {RequestRejected, RequestApproved},
    }
    for _, e := range denied {
        if e.from.CanTransition(e.to) {
            t.Errorf("%s -> %s should be denied", e.from, e.to)
        }
    }
}

func TestDeliveryTransitions(t *testing.T) {
    // Over-the-counter handover skips the courier leg entirely.
    if !DeliveryPending.CanTransition(DeliveryDelivered) {
        t.Error("PENDING -> DELIVERED should be allowed")
    }
    if !DeliveryPending.CanTransition(DeliveryAssigned) {
        t.Error("PENDING -> ASSIGNED should be allowed")
    }
    if !DeliveryAssigned.CanTransition(DeliveryOutForDelivery) {
        t.Error("ASSIGNED -> OUT_FOR_DELIVERY should be allowed")
    }
    if !DeliveryOutForDelivery.CanTransition(DeliveryDelivered) {
        t.Error("OUT_FOR_DELIVERY -> DELIVERED should be allowed")
    }
    if DeliveryAssigned.CanTransition(DeliveryDelivered) {
        t.Error("ASSIGNED -> DELIVERED should be denied")
    }
    for _, terminal := range []DeliveryStatus{DeliveryDelivered, DeliveryCancelled, DeliveryFailed} {
        if !terminal.Terminal() {
            t.Errorf("%s should be terminal", terminal)
        }
        for _, next := range []DeliveryStatus{DeliveryPending, DeliveryAssigned, DeliveryOutForDelivery, DeliveryDelivered, DeliveryCancelled, DeliveryFailed} {
            if terminal.CanTransition(next) {
                t.Errorf("terminal %s -> %s should be denied", terminal, next)
            }
        }
    }
}

func TestDeliveryStatusValid(t *testing.T) {
    if DeliveryStatus("SHIPPED").Valid() {
        t.Error("unknown status should not validate")
    }
    if !DeliveryOutForDelivery.Valid() {
        t.Error("OUT_FOR_DELIVERY should validate")
    }
}

func TestPickupTokenExpired(t *testing.T) {
    issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
    tok := PickupToken{ExpiresAt: issued.Add(PickupTokenTTL)}
    if tok.Expired(issued.Add(PickupTokenTTL - 1)) {
        t.Error("token should still be valid just before the deadline")
    }
    if !tok.Expired(issued.Add(PickupTokenTTL)) {
        t.Error("token should be expired exactly at the deadline")
    }
    if !tok.Expired(issued.Add(PickupTokenTTL + 1)) {
        t.Error("token should be expired past the deadline")
    }
}
