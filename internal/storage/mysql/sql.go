package mysql

// -----------------------------------------------------------------------------
// GROUPS & BLOCKS
// -----------------------------------------------------------------------------

// A group can be addressed by id or by subdomain; the storefront sends either.
const getGroupSQL = `
SELECT id, subdomain, name, hero_image, COALESCE(DATE_FORMAT(event_date, '%Y-%m-%d'), '')
FROM ` + "`groups`" + `
WHERE subdomain = ? OR id = ?
LIMIT 1
`

const listBlocksSQL = `
SELECT room_type, price, total_allocated, total_booked
FROM inventory_blocks
WHERE group_id = ?
ORDER BY position, room_type
`

const getBlockSQL = `
SELECT b.group_id, g.subdomain, b.room_type, b.price, b.total_allocated, b.total_booked
FROM inventory_blocks b
JOIN ` + "`groups`" + ` g ON g.id = b.group_id
WHERE (g.id = ? OR g.subdomain = ?) AND b.room_type = ?
LIMIT 1
`

// Never books past the allocation.
const incrementBookedSQL = `
UPDATE inventory_blocks
SET total_booked = total_booked + 1
WHERE group_id = ? AND room_type = ? AND total_booked < total_allocated
`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const insertBookingSQL = `
INSERT INTO bookings
  (id, group_id, room_type, guest_name, guest_email, agent_id, price_cents, risk_score,
   lock_token, session_id, checkout_url, status, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getBookingBySessionSQL = `
SELECT id, group_id, room_type, guest_name, guest_email, agent_id, price_cents, risk_score,
       lock_token, session_id, checkout_url, status, created_at, updated_at
FROM bookings
WHERE session_id = ?
`

// Guarded by the status the caller read, so a replayed or racing webhook
// cannot apply the same transition twice.
const updateBookingStatusSQL = `
UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?
`

// -----------------------------------------------------------------------------
// ANALYTICS
// -----------------------------------------------------------------------------

const listRegionsSQL = `
SELECT city, country, month, demand_score, supply_rooms
FROM demand_regions
ORDER BY (demand_score - supply_rooms) DESC, city
`

// -----------------------------------------------------------------------------
// AGENTS & REFERRALS
// -----------------------------------------------------------------------------

const ensureAgentSQL = `
INSERT INTO agents (id, name, referred_by, created_at)
VALUES (?, '', NULL, ?)
ON DUPLICATE KEY UPDATE id = id
`

const lockAgentSQL = `
SELECT referred_by FROM agents WHERE id = ? FOR UPDATE
`

const insertReferredAgentSQL = `
INSERT INTO agents (id, name, referred_by, created_at)
VALUES (?, ?, ?, ?)
`

const setReferrerSQL = `
UPDATE agents
SET referred_by = ?, name = IF(? <> '', ?, name)
WHERE id = ? AND referred_by IS NULL
`

// Only confirmed bookings count toward the override.
const networkVolumeSQL = `
SELECT a.id, COALESCE(SUM(b.price_cents), 0)
FROM agents a
LEFT JOIN bookings b ON b.agent_id = a.id AND b.status = 'confirmed'
WHERE a.referred_by = ?
GROUP BY a.id
ORDER BY a.id
`
