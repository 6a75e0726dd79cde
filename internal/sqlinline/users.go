package sqlinline

const QSelectUserByID = `--sql c6688e28-80ab-4172-b24d-abba124772ba
select id, email, coalesce(name, '') as name, points_balance, created_at, updated_at
from users
where id = $1::bigint
limit 1;
`

const QGrantUserPoints = `--sql 5ab71b1b-0117-4c31-871f-1e96af04747b
update users
set points_balance = greatest(points_balance + $2::bigint, 0),
    updated_at = now()
where id = $1::bigint
returning points_balance;
`
