package utils

import "time"

// DeviceTokenPrefix is the prefix used for Redis keys holding push device tokens.
const DeviceTokenPrefix = "device:"

// DeviceTokenTTL bounds how long a registered device token is kept without refresh.
const DeviceTokenTTL = 30 * 24 * time.Hour

// BookingEventsChannel is the Redis pub/sub channel carrying transition events.
const BookingEventsChannel = "booking:events"
