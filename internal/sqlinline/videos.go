package sqlinline

const QInsertVideoJob = `--sql e4b6d9d1-e07d-4ef2-9f61-5caffbd5fe68
insert into video_jobs (id, user_id, status, product_id, product_name, points_cost, request_json, submitted_at, updated_at)
values ($1::text, $2::bigint, 'pending', $3::text, $4::text, $5::bigint, coalesce($6::jsonb, '{}'::jsonb), now(), now())
returning submitted_at;
`

const QSelectVideoJobForOwner = `--sql 1b948b9f-4096-4957-86dc-fd04ada8b50c
select
    j.id,
    j.user_id,
    j.status,
    j.product_id,
    j.product_name,
    coalesce(j.video_url, '') as video_url,
    coalesce(j.error_message, '') as error_message,
    j.points_cost,
    j.points_deducted,
    j.submitted_at,
    j.updated_at
from video_jobs j
where j.id = $1::text
  and j.user_id = $2::bigint
limit 1;
`

const QSelectVideoJobStatus = `--sql e2cdd305-4e5c-4cc9-8656-79ed9fe6ee02
select status
from video_jobs
where id = $1::text
limit 1;
`

const QCompleteVideoJob = `--sql c1a620cd-141b-4c4a-8298-3d13ccd399b2
with target as (
    select j.id, j.user_id, least(j.points_cost, greatest(u.points_balance, 0)) as deducted
    from video_jobs j
    join users u on u.id = j.user_id
    where j.id = $1::text
      and j.status = 'pending'
    for update of j, u
),
settled as (
    update video_jobs j
    set status = 'completed',
        video_url = $2::text,
        points_deducted = t.deducted,
        updated_at = now()
    from target t
    where j.id = t.id
    returning j.id, j.user_id, j.points_deducted
),
charged as (
    update users u
    set points_balance = u.points_balance - s.points_deducted,
        updated_at = now()
    from settled s
    where u.id = s.user_id
    returning u.id, u.points_balance
)
select s.id, s.user_id, s.points_deducted, c.points_balance
from settled s
join charged c on c.id = s.user_id;
`

const QFailVideoJob = `--sql 8e83b7d3-726b-4628-bec8-64b6be3d4be9
with settled as (
    update video_jobs
    set status = 'failed',
        error_message = $2::text,
        updated_at = now()
    where id = $1::text
      and status = 'pending'
    returning id, user_id
)
select s.id, s.user_id, u.points_balance
from settled s
join users u on u.id = s.user_id;
`
